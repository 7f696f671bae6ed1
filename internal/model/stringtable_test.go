package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringTableDedup(t *testing.T) {
	st := NewStringTable()

	a := st.AddString("alpha")
	b := st.AddString("beta")
	assert.Equal(t, int32(0), a)
	assert.Equal(t, int32(1), b)

	// Equal strings resolve to the same index.
	assert.Equal(t, a, st.AddString("alpha"))
	assert.Equal(t, 2, st.Size())
}

func TestStringTableLookups(t *testing.T) {
	st := NewStringTable()
	idx := st.AddString("alpha")

	got, err := st.LookupString("alpha")
	require.NoError(t, err)
	assert.Equal(t, idx, got)

	s, err := st.LookupIndex(idx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", s)

	_, err = st.LookupString("missing")
	assert.Error(t, err)
	_, err = st.LookupIndex(42)
	assert.Error(t, err)
}

func TestStringTableReplayAdvancesCounter(t *testing.T) {
	st := NewStringTable()
	st.AddStringAt("beta", 7)
	st.AddStringAt("alpha", 3)

	// Extending a replayed table must not collide with replayed
	// indices.
	assert.Equal(t, int32(8), st.AddString("gamma"))
	assert.Equal(t, 3, st.Size())
}

func TestStringTableEntriesOrderedByIndex(t *testing.T) {
	st := NewStringTable()
	st.AddStringAt("beta", 5)
	st.AddStringAt("alpha", 1)
	st.AddString("gamma")

	entries := st.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []StringEntry{
		{Index: 1, Value: "alpha"},
		{Index: 5, Value: "beta"},
		{Index: 6, Value: "gamma"},
	}, entries)
}
