package model

import (
	"fmt"
	"sort"
)

// StringTable maps repeated strings to small dense integer indices for
// compact binary serialization. Indices are assigned in first-seen order
// starting at 0. Not safe for concurrent use; serialization is
// single-writer.
type StringTable struct {
	toIndex  map[string]int32
	toString map[int32]string
	next     int32
}

// NewStringTable returns an empty table.
func NewStringTable() *StringTable {
	return &StringTable{
		toIndex:  make(map[string]int32),
		toString: make(map[int32]string),
	}
}

// AddString interns s, returning its existing index if already present.
func (st *StringTable) AddString(s string) int32 {
	if idx, ok := st.toIndex[s]; ok {
		return idx
	}
	idx := st.next
	st.next++
	st.toIndex[s] = idx
	st.toString[idx] = s
	return idx
}

// AddStringAt replays an exact prior index assignment during
// deserialization. The auto-increment counter is advanced past the
// highest replayed index so the table can be extended afterwards without
// colliding.
func (st *StringTable) AddStringAt(s string, index int32) {
	st.toIndex[s] = index
	st.toString[index] = s
	if index >= st.next {
		st.next = index + 1
	}
}

// LookupString returns the index of an interned string. Absence is a
// caller error, not a normal path.
func (st *StringTable) LookupString(s string) (int32, error) {
	idx, ok := st.toIndex[s]
	if !ok {
		return 0, fmt.Errorf("string %q not in table", s)
	}
	return idx, nil
}

// LookupIndex resolves an index back to its string.
func (st *StringTable) LookupIndex(index int32) (string, error) {
	s, ok := st.toString[index]
	if !ok {
		return "", fmt.Errorf("string index %d not in table", index)
	}
	return s, nil
}

// Size returns the number of distinct strings in the table.
func (st *StringTable) Size() int {
	return len(st.toString)
}

// StringEntry is one interned string and its index.
type StringEntry struct {
	Index int32
	Value string
}

// Entries returns all entries ordered by index, so serialized tables are
// deterministic.
func (st *StringTable) Entries() []StringEntry {
	entries := make([]StringEntry, 0, len(st.toString))
	for idx, s := range st.toString {
		entries = append(entries, StringEntry{Index: idx, Value: s})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Index < entries[j].Index
	})
	return entries
}
