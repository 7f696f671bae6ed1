package adapter

import (
	"fmt"

	m "jmute.dev/pkg/jmute/internal/model"
)

// MutationIterator is a lazy, forward-only, single-pass reader over a
// serialized mutation table. The underlying file is closed automatically
// when the last record has been read; abandoning the iterator early
// requires an explicit Close.
type MutationIterator struct {
	r      *MutationFileReader
	pos    int32
	closed bool
}

// NewMutationIterator opens path for iteration.
func NewMutationIterator(path string) (*MutationIterator, error) {
	r, err := NewMutationFileReader(path)
	if err != nil {
		return nil, err
	}
	return &MutationIterator{r: r}, nil
}

// Count returns the total number of records in the table.
func (it *MutationIterator) Count() int32 {
	return it.r.Count()
}

// HasNext reports whether another record remains.
func (it *MutationIterator) HasNext() bool {
	return it.pos < it.r.Count()
}

// Next deserializes the next record. Reading past the end fails cleanly.
func (it *MutationIterator) Next() (m.Mutation, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("mutation table exhausted after %d records", it.pos)
	}
	mu, err := it.r.ReadMutation()
	if err != nil {
		return nil, err
	}
	it.pos++
	if it.pos == it.r.Count() {
		if err := it.Close(); err != nil {
			return nil, err
		}
	}
	return mu, nil
}

// Close releases the underlying file. Closing twice is harmless.
func (it *MutationIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.r.Close()
}
