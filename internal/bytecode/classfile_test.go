package bytecode

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClassBytes builds a minimal but complete class file named
// TestTarget with a single method run()I holding the given code.
func testClassBytes(t *testing.T, code []byte, handlers []ExceptionHandler) []byte {
	t.Helper()
	w := &writer{}
	w.u32(classMagic)
	w.u16(0)
	w.u16(52)

	utf8 := func(s string) {
		w.u8(TagUtf8)
		w.u16(uint16(len(s)))
		w.raw([]byte(s))
	}
	w.u16(16)
	utf8("TestTarget") // 1
	w.u8(TagClass)
	w.u16(1) // 2
	utf8("java/lang/Object") // 3
	w.u8(TagClass)
	w.u16(3)     // 4
	utf8("run")  // 5
	utf8("()I")  // 6
	utf8("Code") // 7
	utf8("max")  // 8
	utf8("(II)I") // 9
	w.u8(TagNameAndType)
	w.u16(8)
	w.u16(9) // 10
	w.u8(TagMethodref)
	w.u16(2)
	w.u16(10) // 11
	utf8("count") // 12
	utf8("J")     // 13
	w.u8(TagNameAndType)
	w.u16(12)
	w.u16(13) // 14
	w.u8(TagFieldref)
	w.u16(2)
	w.u16(14) // 15

	w.u16(AccPublic)
	w.u16(2) // this: TestTarget
	w.u16(4) // super: java/lang/Object
	w.u16(0) // no interfaces
	w.u16(0) // no fields

	w.u16(1) // one method
	w.u16(AccPublic)
	w.u16(5)
	w.u16(6)
	w.u16(1) // one attribute: Code
	w.u16(7)
	cw := &writer{}
	cw.u16(4)
	cw.u16(4)
	cw.u32(uint32(len(code)))
	cw.raw(code)
	cw.u16(uint16(len(handlers)))
	for _, h := range handlers {
		cw.u16(uint16(h.StartPC))
		cw.u16(uint16(h.EndPC))
		cw.u16(uint16(h.HandlerPC))
		cw.u16(h.CatchType)
	}
	cw.u16(0) // no code sub-attributes
	w.u32(uint32(len(cw.buf)))
	w.raw(cw.buf)

	w.u16(0) // no class attributes
	return w.buf
}

func parseTestClass(t *testing.T, code []byte, handlers []ExceptionHandler) *ClassFile {
	t.Helper()
	cf, err := Parse(testClassBytes(t, code, handlers))
	require.NoError(t, err)
	return cf
}

func TestParseRoundTrip(t *testing.T) {
	data := testClassBytes(t, []byte{ICONST_0, IRETURN}, nil)
	cf, err := Parse(data)
	require.NoError(t, err)

	name, err := cf.ClassName()
	require.NoError(t, err)
	assert.Equal(t, "TestTarget", name)

	super, err := cf.SuperClassName()
	require.NoError(t, err)
	assert.Equal(t, "java.lang.Object", super)
	assert.False(t, cf.IsInterface())

	if diff := cmp.Diff(data, cf.Bytes()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsCorruptInput(t *testing.T) {
	data := testClassBytes(t, []byte{ICONST_0, IRETURN}, nil)

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 0xde
		_, err := Parse(bad)
		require.ErrorIs(t, err, ErrBadFormat)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Parse(data[:len(data)-3])
		require.ErrorIs(t, err, ErrBadFormat)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := Parse(append(append([]byte(nil), data...), 0, 0))
		require.ErrorIs(t, err, ErrBadFormat)
	})
}

func TestMethodAndFieldLookup(t *testing.T) {
	cf := parseTestClass(t, []byte{ICONST_0, IRETURN}, nil)

	m, idx := cf.Method("run", "()I")
	require.NotNil(t, m)
	assert.Equal(t, 0, idx)

	name, desc, err := cf.MemberName(m)
	require.NoError(t, err)
	assert.Equal(t, "run", name)
	assert.Equal(t, "()I", desc)

	m, idx = cf.Method("run", "()V")
	assert.Nil(t, m)
	assert.Equal(t, -1, idx)

	f, _ := cf.Field("missing")
	assert.Nil(t, f)
}

func TestPoolResolution(t *testing.T) {
	cf := parseTestClass(t, []byte{ICONST_0, IRETURN}, nil)

	class, name, desc, err := cf.Pool.RefInfo(11)
	require.NoError(t, err)
	assert.Equal(t, "TestTarget", class)
	assert.Equal(t, "max", name)
	assert.Equal(t, "(II)I", desc)

	class, name, desc, err = cf.Pool.RefInfo(15)
	require.NoError(t, err)
	assert.Equal(t, "TestTarget", class)
	assert.Equal(t, "count", name)
	assert.Equal(t, "J", desc)

	_, _, _, err = cf.Pool.RefInfo(1)
	assert.ErrorIs(t, err, ErrBadFormat)

	classes := cf.Pool.ReferencedClasses()
	assert.ElementsMatch(t, []string{"TestTarget", "java.lang.Object"}, classes)
}

func TestAddUtf8Interns(t *testing.T) {
	cf := parseTestClass(t, []byte{ICONST_0, IRETURN}, nil)
	before := cf.Pool.Count()

	// Existing entry is reused, not duplicated.
	assert.Equal(t, uint16(5), cf.Pool.AddUtf8("run"))
	assert.Equal(t, before, cf.Pool.Count())

	idx := cf.Pool.AddUtf8("fresh")
	assert.Equal(t, before, int(idx))
	assert.Equal(t, before+1, cf.Pool.Count())
	assert.Equal(t, idx, cf.Pool.AddUtf8("fresh"))
}

func TestAddClassInterns(t *testing.T) {
	cf := parseTestClass(t, []byte{ICONST_0, IRETURN}, nil)

	assert.Equal(t, uint16(2), cf.Pool.AddClass("TestTarget"))

	idx := cf.Pool.AddClass("java.util.List")
	name, err := cf.Pool.ClassName(idx)
	require.NoError(t, err)
	assert.Equal(t, "java.util.List", name)
	assert.Equal(t, idx, cf.Pool.AddClass("java.util.List"))
}
