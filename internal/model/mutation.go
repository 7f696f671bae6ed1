// Package model defines the data structures and contracts for class-file
// mutation: mutations and their variants, mutation groups, mutation
// tables, and the string table used for compact serialization.
package model

import (
	"fmt"

	"jmute.dev/pkg/jmute/internal/bytecode"
)

// MutationID identifies a mutation within one table. IDs are assigned by
// the table writer and the deserializer, starting at 1 for each fresh
// table write; operators create mutations without an id and receive one
// on first write.
type MutationID struct {
	n int32
}

// NewMutationID wraps an id read from a table or assigned by a writer.
func NewMutationID(n int32) MutationID {
	return MutationID{n: n}
}

// Int returns the id's integer value, 0 if unassigned.
func (id MutationID) Int() int32 {
	return id.n
}

// Assigned reports whether the id has been assigned.
func (id MutationID) Assigned() bool {
	return id.n > 0
}

func (id MutationID) String() string {
	if !id.Assigned() {
		return "?"
	}
	return fmt.Sprintf("%d", id.n)
}

// Variant is one of the mutually exclusive substitution choices at a
// mutation's code location. The only contract is a display string;
// concrete mutation types downcast to their own variant type.
type Variant interface {
	String() string
}

// LinkData is a scratch map letting sibling mutations of one group pass
// computed state to each other during a shared apply pass.
type LinkData map[string]any

// Mutation is a single named transformation of a class file.
type Mutation interface {
	ID() MutationID
	SetID(id MutationID)

	// Type is the short operator tag identifying the generating
	// operator, also used as the serialization registry key.
	Type() string

	Variants() []Variant
	// DefaultVariant is nil for mutations with no variant concept.
	DefaultVariant() Variant

	// Apply transforms the class in place. Undo restores the exact
	// pre-apply state; constant-pool entries must not accumulate
	// across apply/undo cycles.
	Apply(cf *bytecode.ClassFile, v Variant) error
	Undo(cf *bytecode.ClassFile) error

	Accept(v MutationVisitor) error
	Serialize(w MutationWriter) error
	fmt.Stringer
}

// ClassScoped is a mutation fixed to one class.
type ClassScoped interface {
	Mutation
	ClassName() string
}

// MethodScoped is a mutation fixed to one method of one class.
type MethodScoped interface {
	ClassScoped
	MethodName() string
	Signature() string
}

// GroupableMutation is a mutation that can be applied alongside siblings
// in a single instruction-list edit pass over the shared method body.
type GroupableMutation interface {
	MethodScoped

	// ApplyInGroup applies against an already-decoded instruction list
	// shared by the whole group.
	ApplyInGroup(cf *bytecode.ClassFile, code *bytecode.Code, link LinkData, v Variant) error
	// UndoInGroup reverts the edit on the shared instruction list.
	UndoInGroup(code *bytecode.Code, link LinkData) error

	// Group returns the owning group, nil if ungrouped. SetGroup is
	// called by MutationGroup.AddMutation only; the group owns
	// membership and the mutation holds a non-owning back-reference.
	Group() *MutationGroup
	SetGroup(g *MutationGroup)
}

// mutationBase carries the identity shared by all mutations.
type mutationBase struct {
	id MutationID
}

func (b *mutationBase) ID() MutationID      { return b.id }
func (b *mutationBase) SetID(id MutationID) { b.id = id }

// ClassMutation is the embeddable base for mutations scoped to a class.
type ClassMutation struct {
	mutationBase
	Class string
}

func (m *ClassMutation) ClassName() string { return m.Class }

// MethodMutation is the embeddable base for mutations scoped to one
// method.
type MethodMutation struct {
	mutationBase
	Class  string
	Method string
	Sig    string
}

func (m *MethodMutation) ClassName() string  { return m.Class }
func (m *MethodMutation) MethodName() string { return m.Method }
func (m *MethodMutation) Signature() string  { return m.Sig }

// groupMember is the embeddable parent handle for groupable mutations.
type groupMember struct {
	group *MutationGroup
}

func (m *groupMember) Group() *MutationGroup     { return m.group }
func (m *groupMember) SetGroup(g *MutationGroup) { m.group = g }

// GroupableMethodMutation is the embeddable base for method-scoped
// mutations that participate in groups.
type GroupableMethodMutation struct {
	MethodMutation
	groupMember
}
