package model

// MutationTable is an unordered bag of mutations plus the string table
// compacting any strings they reference. The in-memory realization
// lives here; the streaming writer and the forward-only iterator wrap
// files and live with the other file adapters.
type MutationTable interface {
	AddMutation(m Mutation) error
	StringTable() *StringTable
}

// StandardMutationTable is the in-memory realization: mutations can be
// added and enumerated freely.
type StandardMutationTable struct {
	mutations []Mutation
	strings   *StringTable
}

// NewStandardMutationTable returns an empty table with a fresh string
// table.
func NewStandardMutationTable() *StandardMutationTable {
	return NewStandardMutationTableWith(NewStringTable())
}

// NewStandardMutationTableWith returns an empty table reusing an
// existing string table, preserving index stability across
// read-modify-write cycles.
func NewStandardMutationTableWith(st *StringTable) *StandardMutationTable {
	return &StandardMutationTable{strings: st}
}

func (t *StandardMutationTable) AddMutation(m Mutation) error {
	t.mutations = append(t.mutations, m)
	return nil
}

func (t *StandardMutationTable) StringTable() *StringTable {
	return t.strings
}

// Mutations returns the table contents in insertion order.
func (t *StandardMutationTable) Mutations() []Mutation {
	return t.mutations
}

// Size returns the number of mutations in the table.
func (t *StandardMutationTable) Size() int {
	return len(t.mutations)
}
