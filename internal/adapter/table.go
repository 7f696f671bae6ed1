package adapter

import (
	m "jmute.dev/pkg/jmute/internal/model"
)

// FileWriterMutationTable is the append-only, one-way realization of a
// mutation table: every added mutation streams straight to disk. Close
// finalizes the file; the table must not be used afterwards.
type FileWriterMutationTable struct {
	w     *MutationFileWriter
	count int32
}

// NewFileWriterMutationTable opens a streaming table at path.
func NewFileWriterMutationTable(path string, strings *m.StringTable) (*FileWriterMutationTable, error) {
	w, err := NewMutationFileWriter(path, strings)
	if err != nil {
		return nil, err
	}
	return &FileWriterMutationTable{w: w}, nil
}

func (t *FileWriterMutationTable) AddMutation(mu m.Mutation) error {
	if err := t.w.WriteMutation(mu); err != nil {
		return err
	}
	t.count++
	return nil
}

func (t *FileWriterMutationTable) StringTable() *m.StringTable {
	return t.w.StringTable()
}

// Size returns the number of records streamed so far.
func (t *FileWriterMutationTable) Size() int {
	return int(t.count)
}

// Close writes the string table and header and releases the file.
func (t *FileWriterMutationTable) Close() error {
	return t.w.Close(t.count)
}
