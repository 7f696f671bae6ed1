package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

// noteMutation is a registered test-only mutation type exercising the
// codec surface: interned strings, ints, and bools.
type noteMutation struct {
	m.GroupableMethodMutation
	value int32
	flag  bool
}

func init() {
	RegisterMutationType("test.note", func(r m.MutationReader) (m.Mutation, error) {
		mu := &noteMutation{}
		var err error
		if mu.Class, err = r.ReadUTF(); err != nil {
			return nil, err
		}
		if mu.Method, err = r.ReadUTF(); err != nil {
			return nil, err
		}
		if mu.Sig, err = r.ReadUTF(); err != nil {
			return nil, err
		}
		if mu.value, err = r.ReadInt(); err != nil {
			return nil, err
		}
		if mu.flag, err = r.ReadBool(); err != nil {
			return nil, err
		}
		return mu, nil
	})
}

func newNote(class string, value int32) *noteMutation {
	mu := &noteMutation{value: value, flag: value%2 == 0}
	mu.Class = class
	mu.Method = "run"
	mu.Sig = "()V"
	return mu
}

func (mu *noteMutation) Type() string              { return "test.note" }
func (mu *noteMutation) Variants() []m.Variant     { return nil }
func (mu *noteMutation) DefaultVariant() m.Variant { return nil }

func (mu *noteMutation) Apply(cf *bytecode.ClassFile, v m.Variant) error { return nil }
func (mu *noteMutation) Undo(cf *bytecode.ClassFile) error               { return nil }

func (mu *noteMutation) ApplyInGroup(cf *bytecode.ClassFile, code *bytecode.Code, link m.LinkData, v m.Variant) error {
	return nil
}
func (mu *noteMutation) UndoInGroup(code *bytecode.Code, link m.LinkData) error { return nil }

func (mu *noteMutation) Accept(v m.MutationVisitor) error { return v.VisitGroupable(mu) }

func (mu *noteMutation) Serialize(w m.MutationWriter) error {
	for _, s := range []string{mu.Class, mu.Method, mu.Sig} {
		if err := w.WriteUTF(s); err != nil {
			return err
		}
	}
	if err := w.WriteInt(mu.value); err != nil {
		return err
	}
	return w.WriteBool(mu.flag)
}

func (mu *noteMutation) String() string { return "note " + mu.ID().String() }

func tablePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "Target.mut")
}

func TestTableRoundTrip(t *testing.T) {
	path := tablePath(t)

	table := m.NewStandardMutationTable()
	require.NoError(t, table.AddMutation(newNote("example.A", 1)))
	require.NoError(t, table.AddMutation(newNote("example.A", 2)))
	require.NoError(t, table.AddMutation(newNote("example.B", 3)))
	require.NoError(t, WriteMutationTable(path, table))

	got, err := ReadMutationTable(path)
	require.NoError(t, err)
	require.Equal(t, 3, got.Size())

	for i, mu := range got.Mutations() {
		note, ok := mu.(*noteMutation)
		require.True(t, ok)
		assert.Equal(t, int32(i+1), mu.ID().Int())
		assert.Equal(t, "test.note", mu.Type())
		assert.Equal(t, int32(i+1), note.value)
		assert.Equal(t, "run", note.Method)
	}
	// The three mutations share most strings; dedup keeps the table
	// small.
	assert.Equal(t, got.StringTable().Size(), table.StringTable().Size())
}

func TestWriteAssignsSequentialIDs(t *testing.T) {
	path := tablePath(t)

	table := m.NewStandardMutationTable()
	preassigned := newNote("example.A", 9)
	preassigned.SetID(m.NewMutationID(40))
	require.NoError(t, table.AddMutation(newNote("example.A", 1)))
	require.NoError(t, table.AddMutation(preassigned))
	require.NoError(t, table.AddMutation(newNote("example.A", 2)))
	require.NoError(t, WriteMutationTable(path, table))

	got, err := ReadMutationTable(path)
	require.NoError(t, err)

	var ids []int32
	for _, mu := range got.Mutations() {
		ids = append(ids, mu.ID().Int())
	}
	// Fresh ids start at 1; a preassigned id is preserved and does not
	// advance the counter.
	assert.Equal(t, []int32{1, 40, 2}, ids)
}

func TestGroupRoundTrip(t *testing.T) {
	path := tablePath(t)

	g := m.NewMutationGroup("example.A", "run", "()V")
	g.AddMutation(newNote("example.A", 5))
	g.AddMutation(newNote("example.A", 6))

	table := m.NewStandardMutationTable()
	require.NoError(t, table.AddMutation(g))
	require.NoError(t, WriteMutationTable(path, table))

	got, err := ReadMutationTable(path)
	require.NoError(t, err)
	require.Equal(t, 1, got.Size())

	rg, ok := got.Mutations()[0].(*m.MutationGroup)
	require.True(t, ok)
	assert.Equal(t, "example.A", rg.ClassName())
	assert.Equal(t, "run", rg.MethodName())
	assert.Equal(t, "()V", rg.Signature())
	require.Equal(t, 2, rg.Size())
	for _, member := range rg.Members() {
		assert.Same(t, rg, member.Group())
		assert.True(t, member.ID().Assigned())
	}
}

func TestGroupWithoutMethodScope(t *testing.T) {
	path := tablePath(t)

	table := m.NewStandardMutationTable()
	require.NoError(t, table.AddMutation(m.NewMutationGroup("example.A", "", "")))
	require.NoError(t, WriteMutationTable(path, table))

	got, err := ReadMutationTable(path)
	require.NoError(t, err)
	rg := got.Mutations()[0].(*m.MutationGroup)
	assert.Empty(t, rg.MethodName())
	assert.Empty(t, rg.Signature())
	assert.Zero(t, rg.Size())
}

func TestStringTableReuseAcrossSessions(t *testing.T) {
	path := tablePath(t)

	table := m.NewStandardMutationTable()
	require.NoError(t, table.AddMutation(newNote("example.A", 1)))
	require.NoError(t, WriteMutationTable(path, table))

	strings := m.NewStringTable()
	got, err := ReadMutationTableWith(path, strings)
	require.NoError(t, err)

	// Extending the replayed table must hand out fresh indices while
	// existing strings keep theirs.
	classIdx, err := strings.LookupString("example.A")
	require.NoError(t, err)
	assert.Equal(t, classIdx, strings.AddString("example.A"))
	fresh := strings.AddString("example.Z")
	assert.Greater(t, fresh, classIdx)
	assert.Same(t, strings, got.StringTable())
}

func TestFileWriterMutationTable(t *testing.T) {
	path := tablePath(t)

	fw, err := NewFileWriterMutationTable(path, m.NewStringTable())
	require.NoError(t, err)
	require.NoError(t, fw.AddMutation(newNote("example.A", 1)))
	require.NoError(t, fw.AddMutation(newNote("example.A", 2)))
	assert.Equal(t, 2, fw.Size())
	require.NoError(t, fw.Close())

	got, err := ReadMutationTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Size())
}

func TestWriterTruncatesExistingFile(t *testing.T) {
	path := tablePath(t)
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	table := m.NewStandardMutationTable()
	require.NoError(t, table.AddMutation(newNote("example.A", 1)))
	require.NoError(t, WriteMutationTable(path, table))

	got, err := ReadMutationTable(path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Size())
}

func TestReaderRejectsCorruptFiles(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		path := tablePath(t)
		require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
		_, err := NewMutationFileReader(path)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("missing string table", func(t *testing.T) {
		path := tablePath(t)
		data := make([]byte, 12)
		data[7] = 200 // string table offset beyond EOF
		require.NoError(t, os.WriteFile(path, data, 0o644))
		_, err := NewMutationFileReader(path)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("unknown mutation type", func(t *testing.T) {
		path := tablePath(t)
		w, err := NewMutationFileWriter(path, m.NewStringTable())
		require.NoError(t, err)
		require.NoError(t, w.WriteInt(1))
		require.NoError(t, w.WriteUTF("no.such.type"))
		require.NoError(t, w.Close(1))

		r, err := NewMutationFileReader(path)
		require.NoError(t, err)
		defer r.Close()
		_, err = r.ReadMutation()
		require.ErrorIs(t, err, ErrFormat)
	})
}

func TestIteratorExhaustion(t *testing.T) {
	path := tablePath(t)

	table := m.NewStandardMutationTable()
	for i := int32(1); i <= 4; i++ {
		require.NoError(t, table.AddMutation(newNote("example.A", i)))
	}
	require.NoError(t, WriteMutationTable(path, table))

	it, err := NewMutationIterator(path)
	require.NoError(t, err)
	assert.Equal(t, int32(4), it.Count())

	var seen int
	for it.HasNext() {
		mu, err := it.Next()
		require.NoError(t, err)
		require.NotNil(t, mu)
		seen++
	}
	assert.Equal(t, 4, seen)

	// Exhaustion closed the file; further reads fail cleanly.
	_, err = it.Next()
	assert.Error(t, err)
	assert.NoError(t, it.Close())
}

func TestIteratorEarlyClose(t *testing.T) {
	path := tablePath(t)

	table := m.NewStandardMutationTable()
	require.NoError(t, table.AddMutation(newNote("example.A", 1)))
	require.NoError(t, table.AddMutation(newNote("example.A", 2)))
	require.NoError(t, WriteMutationTable(path, table))

	it, err := NewMutationIterator(path)
	require.NoError(t, err)
	_, err = it.Next()
	require.NoError(t, err)
	require.NoError(t, it.Close())
	assert.NoError(t, it.Close())
}

func TestJavaUTFRoundTrip(t *testing.T) {
	for _, s := range []string{"", "plain", "example.Класс", "nul\x00byte", "emoji \U0001f600"} {
		encoded, err := encodeJavaUTF(s)
		require.NoError(t, err)
		decoded, err := decodeJavaUTF(encoded[2:])
		require.NoError(t, err)
		assert.Equal(t, s, decoded)
	}

	// NUL is two bytes in modified UTF-8, never a raw zero byte.
	encoded, err := encodeJavaUTF("\x00")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02, 0xc0, 0x80}, encoded)
}
