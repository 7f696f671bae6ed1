package adapter

import (
	"fmt"

	m "jmute.dev/pkg/jmute/internal/model"
)

// DeserializeFunc reconstructs one mutation of a concrete type from a
// record stream. The id has already been consumed; the caller assigns
// it afterwards.
type DeserializeFunc func(r m.MutationReader) (m.Mutation, error)

// mutationTypes maps serialization type tags to deserializers. Operators
// register themselves at init time; groups are built in.
var mutationTypes = map[string]DeserializeFunc{
	m.GroupTypeTag: func(r m.MutationReader) (m.Mutation, error) {
		return m.DeserializeMutationGroup(r)
	},
}

// RegisterMutationType binds a type tag to its deserializer. Registering
// the same tag twice is a programming error.
func RegisterMutationType(tag string, fn DeserializeFunc) {
	if _, dup := mutationTypes[tag]; dup {
		panic(fmt.Sprintf("mutation type %q registered twice", tag))
	}
	mutationTypes[tag] = fn
}

func lookupMutationType(tag string) (DeserializeFunc, error) {
	fn, ok := mutationTypes[tag]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mutation type %q", ErrFormat, tag)
	}
	return fn, nil
}

// ReadMutationTable materializes a whole table into memory.
func ReadMutationTable(path string) (*m.StandardMutationTable, error) {
	return ReadMutationTableWith(path, m.NewStringTable())
}

// ReadMutationTableWith materializes a table, replaying its string table
// into strings so a later write preserves existing indices.
func ReadMutationTableWith(path string, strings *m.StringTable) (*m.StandardMutationTable, error) {
	r, err := NewMutationFileReaderWith(path, strings)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	table := m.NewStandardMutationTableWith(strings)
	for i := int32(0); i < r.Count(); i++ {
		mu, err := r.ReadMutation()
		if err != nil {
			return nil, err
		}
		if err := table.AddMutation(mu); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// WriteMutationTable drains an in-memory table to path.
func WriteMutationTable(path string, table *m.StandardMutationTable) error {
	w, err := NewMutationFileWriter(path, table.StringTable())
	if err != nil {
		return err
	}
	for _, mu := range table.Mutations() {
		if err := w.WriteMutation(mu); err != nil {
			w.Close(0)
			return err
		}
	}
	return w.Close(int32(table.Size()))
}
