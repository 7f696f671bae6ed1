package model

import (
	"fmt"

	"jmute.dev/pkg/jmute/internal/bytecode"
)

// GroupTypeTag is the serialization registry tag for mutation groups.
const GroupTypeTag = "group"

// VisitAllMembers is the requested-variant sentinel meaning no single
// member has been singled out: every member is visited.
const VisitAllMembers int32 = -1

// MutationGroup is a composite mutation owning an ordered collection of
// groupable mutations that share one (class, method, signature) scope.
// As a plain Mutation its apply and undo are no-ops; real application
// happens through Accept, which lets the visitor decode the shared
// method body once for all members.
type MutationGroup struct {
	mutationBase

	className  string
	methodName string
	signature  string

	members          []GroupableMutation
	requestedVariant int32
}

// NewMutationGroup returns an empty group for the given scope.
func NewMutationGroup(className, methodName, signature string) *MutationGroup {
	return &MutationGroup{
		className:        className,
		methodName:       methodName,
		signature:        signature,
		requestedVariant: VisitAllMembers,
	}
}

func (g *MutationGroup) ClassName() string  { return g.className }
func (g *MutationGroup) MethodName() string { return g.methodName }
func (g *MutationGroup) Signature() string  { return g.signature }

// AddMutation appends a member and points its parent handle at this
// group.
func (g *MutationGroup) AddMutation(gm GroupableMutation) {
	gm.SetGroup(g)
	g.members = append(g.members, gm)
}

// Members returns the members in insertion order.
func (g *MutationGroup) Members() []GroupableMutation {
	return g.members
}

// Size returns the number of members.
func (g *MutationGroup) Size() int {
	return len(g.members)
}

// RequestedVariant returns the id of the single member selected for
// visitation, or VisitAllMembers.
func (g *MutationGroup) RequestedVariant() int32 {
	return g.requestedVariant
}

// SetRequestedVariant restricts visitation to the member whose mutation
// id equals id. Pass VisitAllMembers to clear the restriction.
func (g *MutationGroup) SetRequestedVariant(id int32) {
	g.requestedVariant = id
}

// Type returns the serialization tag for groups.
func (g *MutationGroup) Type() string { return GroupTypeTag }

// Variants collects each member's own variant, deduplicated by the
// member's mutation id: the position follows first insertion, the value
// follows last insertion under the same id. Meaningful only once member
// ids are assigned.
func (g *MutationGroup) Variants() []Variant {
	var order []int32
	byID := make(map[int32]Variant)
	for _, m := range g.members {
		id := m.ID().Int()
		if _, seen := byID[id]; !seen {
			order = append(order, id)
		}
		byID[id] = m.DefaultVariant()
	}
	variants := make([]Variant, len(order))
	for i, id := range order {
		variants[i] = byID[id]
	}
	return variants
}

// DefaultVariant is nil: a group has no variant of its own.
func (g *MutationGroup) DefaultVariant() Variant { return nil }

// Apply is a no-op; members are applied individually through Accept.
func (g *MutationGroup) Apply(cf *bytecode.ClassFile, v Variant) error { return nil }

// Undo is a no-op; see Apply.
func (g *MutationGroup) Undo(cf *bytecode.ClassFile) error { return nil }

// Accept visits the group, then the members if the visitor asked for
// them, then the group again. When a requested variant is set, only the
// member with that mutation id is visited.
func (g *MutationGroup) Accept(v MutationVisitor) error {
	visitMembers, err := v.EnterGroup(g)
	if err != nil {
		return err
	}
	if visitMembers {
		for _, m := range g.members {
			if g.requestedVariant != VisitAllMembers &&
				m.ID().Int() != g.requestedVariant {
				continue
			}
			if err := m.Accept(v); err != nil {
				return err
			}
		}
	}
	return v.ExitGroup(g)
}

// Serialize writes the group scope and the full nested records of every
// member. The method-name and signature presence flags are both written
// unconditionally, in that order.
func (g *MutationGroup) Serialize(w MutationWriter) error {
	if err := w.WriteUTF(g.className); err != nil {
		return err
	}
	if err := w.WriteBool(g.methodName != ""); err != nil {
		return err
	}
	if g.methodName != "" {
		if err := w.WriteUTF(g.methodName); err != nil {
			return err
		}
	}
	if err := w.WriteBool(g.signature != ""); err != nil {
		return err
	}
	if g.signature != "" {
		if err := w.WriteUTF(g.signature); err != nil {
			return err
		}
	}
	if err := w.WriteInt(int32(len(g.members))); err != nil {
		return err
	}
	for _, m := range g.members {
		if err := w.WriteMutation(m); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeMutationGroup reconstructs a group and its members from a
// record stream.
func DeserializeMutationGroup(r MutationReader) (*MutationGroup, error) {
	className, err := r.ReadUTF()
	if err != nil {
		return nil, err
	}
	var methodName, signature string
	hasMethod, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	if hasMethod {
		if methodName, err = r.ReadUTF(); err != nil {
			return nil, err
		}
	}
	hasSig, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	if hasSig {
		if signature, err = r.ReadUTF(); err != nil {
			return nil, err
		}
	}
	count, err := r.ReadInt()
	if err != nil {
		return nil, err
	}
	g := NewMutationGroup(className, methodName, signature)
	for i := int32(0); i < count; i++ {
		m, err := r.ReadMutation()
		if err != nil {
			return nil, err
		}
		gm, ok := m.(GroupableMutation)
		if !ok {
			return nil, fmt.Errorf("group member %d is %s, not groupable", i, m.Type())
		}
		g.AddMutation(gm)
	}
	return g, nil
}

func (g *MutationGroup) String() string {
	scope := g.className
	if g.methodName != "" {
		scope += "." + g.methodName + g.signature
	}
	return fmt.Sprintf("group %s: %s, %d members", g.id, scope, len(g.members))
}
