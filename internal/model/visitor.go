package model

// MutationVisitor is the contract the apply engine implements to walk a
// mutation table. Groups drive a two-phase protocol: EnterGroup decides
// whether the members are visited at all, ExitGroup runs regardless so
// the visitor can commit or record whatever it accumulated.
type MutationVisitor interface {
	// Visit handles a plain, class-scoped, or method-scoped mutation.
	Visit(m Mutation) error

	// VisitGroupable handles a groupable mutation. The mutation may or
	// may not be inside an active group context; the visitor decides.
	VisitGroupable(m GroupableMutation) error

	// EnterGroup opens a group. The returned flag controls whether the
	// group's members are visited.
	EnterGroup(g *MutationGroup) (visitMembers bool, err error)

	// ExitGroup closes a group. Called even when members were skipped.
	ExitGroup(g *MutationGroup) error
}

// MutationSelector decides which mutations an apply pass includes and
// which variant each included mutation is applied with.
type MutationSelector interface {
	IsSelected(m Mutation) bool
	// SelectVariant resolves the variant for a selected mutation.
	SelectVariant(m Mutation) Variant

	// SetMutationCount tells the selector how many mutations the pass
	// may offer it, before any is offered. Random selectors draw their
	// sample from this total; others ignore it.
	SetMutationCount(count int)

	// RequestedVariant returns the group-relative ordinal of the single
	// member to visit when the selection names a group, or
	// VisitAllMembers when no member is singled out.
	RequestedVariant(m Mutation) int32
}
