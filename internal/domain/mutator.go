// Package domain implements the mutation engine: generating mutation
// tables from class files, selecting mutations to apply, and the apply
// engine with group batching and verify/rollback.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

// Mutator applies a selector-filtered subset of a class's mutation
// table to the class, recording what was applied into a sibling table.
// One Mutator owns one class at a time; sessions are single-threaded.
type Mutator struct {
	selector   m.MutationSelector
	verifier   adapter.Verifier
	classGraph *adapter.ClassGraph

	cf             *bytecode.ClassFile
	className      string
	requestedClass string
	rejected       int

	// shared decode of the active group's method
	meth *bytecode.Member
	code *bytecode.Code
}

// NewMutator returns a mutator without verification. A nil selector
// selects everything.
func NewMutator(selector m.MutationSelector) *Mutator {
	if selector == nil {
		selector = DefaultSelector{}
	}
	return &Mutator{selector: selector}
}

// NewVerifyingMutator returns a mutator that checks every applied
// mutation against the verifier and rolls back rejected ones. The class
// graph, when given, extends class-scope checks to dependent classes.
func NewVerifyingMutator(selector m.MutationSelector, verifier adapter.Verifier, graph *adapter.ClassGraph) *Mutator {
	mu := NewMutator(selector)
	mu.verifier = verifier
	mu.classGraph = graph
	return mu
}

// SetRequestedClass records the class name the user asked to mutate.
// Apply paths warn when the loaded class differs.
func (mu *Mutator) SetRequestedClass(name string) {
	mu.requestedClass = name
}

// LoadClassFile loads the class at path for mutation.
func (mu *Mutator) LoadClassFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return mu.LoadClass(data)
}

// LoadClass loads a class from its bytes. Interfaces cannot be mutated.
func (mu *Mutator) LoadClass(data []byte) error {
	cf, err := bytecode.Parse(data)
	if err != nil {
		return err
	}
	if cf.IsInterface() {
		return fmt.Errorf("cannot mutate an interface")
	}
	name, err := cf.ClassName()
	if err != nil {
		return err
	}
	mu.cf = cf
	mu.className = name
	mu.meth, mu.code = nil, nil
	if mu.requestedClass == "" {
		mu.requestedClass = name
	}
	return nil
}

// ClassName returns the fully qualified name of the loaded class.
func (mu *Mutator) ClassName() string {
	return mu.className
}

// ClassBytes encodes the loaded class, with whatever mutations have
// been applied so far.
func (mu *Mutator) ClassBytes() []byte {
	return mu.cf.Bytes()
}

// Rejected counts the mutations the verifier rolled back in the last
// session.
func (mu *Mutator) Rejected() int {
	return mu.rejected
}

// WriteClass writes the mutated class to path.
func (mu *Mutator) WriteClass(path string) error {
	return os.WriteFile(path, mu.cf.Bytes(), 0o644)
}

// Mutate runs a full session against the conventional file names:
// <class>.mut read, <class>.mut.apl written.
func (mu *Mutator) Mutate(ctx context.Context) error {
	if mu.cf == nil {
		return fmt.Errorf("no class loaded")
	}
	return mu.MutateTable(ctx, mu.className+".mut", mu.className+".mut.apl")
}

// MutateTable streams the mutation table at tablePath through the
// selector, applying what it selects, and records the applied subset
// at appliedPath.
func (mu *Mutator) MutateTable(ctx context.Context, tablePath, appliedPath string) error {
	if mu.cf == nil {
		return fmt.Errorf("no class loaded")
	}
	mutants, err := adapter.NewMutationIterator(tablePath)
	if err != nil {
		return fmt.Errorf("could not read mutation table for %s: %w", mu.className, err)
	}
	defer mutants.Close()

	applied, err := adapter.NewFileWriterMutationTable(appliedPath, m.NewStringTable())
	if err != nil {
		return fmt.Errorf("could not create applied mutation table for %s: %w", mu.className, err)
	}

	agent := &mutationAgent{
		mu:       mu,
		ctx:      ctx,
		selector: mu.selector,
		table:    applied,
		verify:   mu.verifier != nil,
	}
	mu.selector.SetMutationCount(int(mutants.Count()))
	mu.rejected = 0

	var visitErr error
	for mutants.HasNext() {
		if visitErr = ctx.Err(); visitErr != nil {
			break
		}
		mut, err := mutants.Next()
		if err != nil {
			visitErr = fmt.Errorf("error reading mutation table: %w", err)
			break
		}
		if err := mut.Accept(agent); err != nil {
			visitErr = err
			break
		}
	}

	// A close failure can leave the file unreadable, so it outranks
	// nothing but an earlier failure.
	if err := applied.Close(); err != nil && visitErr == nil {
		visitErr = fmt.Errorf("failed to close applied mutation table for %s: %w", mu.className, err)
	}
	return visitErr
}

// mutationAgent walks a mutation table and applies what the selector
// picks, batching group members over one shared instruction list.
type mutationAgent struct {
	mu       *Mutator
	ctx      context.Context
	selector m.MutationSelector
	table    m.MutationTable
	verify   bool

	currentGroup *m.MutationGroup
	visitedGroup *m.MutationGroup
	link         m.LinkData
	// dirty means a provisional commit put member edits in the class;
	// the group exit must commit the final code state even when every
	// member was rejected and undone.
	dirty bool
}

func (a *mutationAgent) checkRequestedClass() {
	if a.mu.requestedClass != "" && a.mu.requestedClass != a.mu.className {
		slog.Warn("mutating a class other than the requested one",
			"requested", a.mu.requestedClass, "loaded", a.mu.className)
	}
}

func (a *mutationAgent) Visit(mut m.Mutation) error {
	if !a.selector.IsSelected(mut) {
		return nil
	}
	a.checkRequestedClass()

	if err := mut.Apply(a.mu.cf, a.selector.SelectVariant(mut)); err != nil {
		return err
	}
	if a.verify {
		ok, err := a.verifyMutant(mut)
		if err != nil {
			return err
		}
		if !ok {
			return mut.Undo(a.mu.cf)
		}
	}
	if err := a.table.AddMutation(mut); err != nil {
		return err
	}
	slog.Debug("mutation applied",
		"id", mut.ID().Int(), "type", mut.Type(), "class", a.mu.className)
	return nil
}

func (a *mutationAgent) EnterGroup(g *m.MutationGroup) (bool, error) {
	selected := a.selector.IsSelected(g)
	if !selected {
		for _, member := range g.Members() {
			if a.selector.IsSelected(member) {
				selected = true
				break
			}
		}
	}
	if !selected {
		return false, nil
	}
	a.checkRequestedClass()

	// An explicit id:variant selection singles out one member by its
	// ordinal within the group; resolve it to the member's absolute id.
	if rv := a.selector.RequestedVariant(g); rv != m.VisitAllMembers {
		g.SetRequestedVariant(g.ID().Int() + rv)
	} else {
		g.SetRequestedVariant(m.VisitAllMembers)
	}

	if g.ClassName() != a.mu.className {
		return false, fmt.Errorf("mutation group %s expects unloaded class %s",
			g.ID(), g.ClassName())
	}
	meth, _ := a.mu.cf.Method(g.MethodName(), g.Signature())
	if meth == nil {
		return false, fmt.Errorf("mutation group method %s%s could not be loaded",
			g.MethodName(), g.Signature())
	}
	code, err := a.mu.cf.DecodeCode(meth)
	if err != nil {
		return false, err
	}
	if code == nil {
		return false, fmt.Errorf("mutation group method %s%s has no code",
			g.MethodName(), g.Signature())
	}

	a.mu.meth, a.mu.code = meth, code
	a.currentGroup = g
	a.visitedGroup = m.NewMutationGroup(g.ClassName(), g.MethodName(), g.Signature())
	a.link = m.LinkData{}
	slog.Debug("processing mutation group",
		"id", g.ID().Int(), "class", a.mu.className)
	return true, nil
}

func (a *mutationAgent) ExitGroup(g *m.MutationGroup) error {
	if a.currentGroup != g {
		return nil
	}
	if a.visitedGroup.Size() > 0 || a.dirty {
		if err := a.mu.cf.CommitCode(a.mu.meth, a.mu.code); err != nil {
			return err
		}
	}
	err := a.table.AddMutation(a.visitedGroup)
	a.currentGroup, a.visitedGroup, a.link = nil, nil, nil
	a.mu.meth, a.mu.code = nil, nil
	a.dirty = false
	slog.Debug("finished mutation group",
		"id", g.ID().Int(), "class", a.mu.className)
	return err
}

func (a *mutationAgent) VisitGroupable(gm m.GroupableMutation) error {
	parent := gm.Group()
	selected := a.selector.IsSelected(gm)
	if !selected && (parent == nil || !a.selector.IsSelected(parent)) {
		return nil
	}
	a.checkRequestedClass()

	var variant m.Variant
	if selected {
		variant = a.selector.SelectVariant(gm)
	} else {
		variant = a.selector.SelectVariant(parent)
	}

	switch {
	case parent != nil && parent == a.currentGroup:
		if err := gm.ApplyInGroup(a.mu.cf, a.mu.code, a.link, variant); err != nil {
			return err
		}
		if a.verify {
			// Provisional commit so the verifier sees a coherent class.
			if err := a.mu.cf.CommitCode(a.mu.meth, a.mu.code); err != nil {
				return err
			}
			a.dirty = true
			ok, err := a.verifyMutant(gm)
			if err != nil {
				return err
			}
			if !ok {
				return gm.UndoInGroup(a.mu.code, a.link)
			}
		}
		a.visitedGroup.AddMutation(gm)
	case parent == nil:
		if err := gm.Apply(a.mu.cf, variant); err != nil {
			return err
		}
		if a.verify {
			ok, err := a.verifyMutant(gm)
			if err != nil {
				return err
			}
			if !ok {
				return gm.Undo(a.mu.cf)
			}
		}
		if err := a.table.AddMutation(gm); err != nil {
			return err
		}
	default:
		return fmt.Errorf("mutation %s visited before its group", gm.ID())
	}

	slog.Debug("mutation applied",
		"id", gm.ID().Int(), "type", gm.Type(), "class", a.mu.className)
	return nil
}

// verifyMutant checks the class with the mutation applied. Method-scope
// mutations verify only the affected method; class-scope mutations
// verify the whole class and then, through the class graph, every class
// depending on it.
func (a *mutationAgent) verifyMutant(mut m.Mutation) (bool, error) {
	class := a.mu.cf.Bytes()

	if gm, isMethod := mut.(m.MethodScoped); isMethod {
		ok, err := a.mu.verifier.VerifyMethod(a.ctx, a.mu.className,
			gm.MethodName(), gm.Signature(), class)
		if err != nil {
			return false, fmt.Errorf("could not verify mutation %s: %w", mut.ID(), err)
		}
		if !ok {
			a.logRejected(mut)
		}
		return ok, nil
	}

	ok, err := a.mu.verifier.VerifyClass(a.ctx, a.mu.className, class)
	if err != nil {
		return false, fmt.Errorf("could not verify mutation %s: %w", mut.ID(), err)
	}
	if ok && a.mu.classGraph != nil {
		for _, dep := range a.mu.classGraph.Dependents(a.mu.className) {
			if ok, err = a.mu.verifier.VerifyClass(a.ctx, dep, nil); err != nil {
				return false, fmt.Errorf("could not verify mutation %s: %w", mut.ID(), err)
			}
			if !ok {
				break
			}
		}
	}
	if !ok {
		a.logRejected(mut)
	}
	return ok, nil
}

func (a *mutationAgent) logRejected(mut m.Mutation) {
	a.mu.rejected++
	slog.Warn("mutation failed verification",
		"id", mut.ID().Int(), "type", mut.Type(), "class", a.mu.className)
}
