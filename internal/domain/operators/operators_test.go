package operators

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

// bw assembles big-endian class file bytes for fixtures.
type bw struct{ buf []byte }

func (w *bw) u8(v byte)    { w.buf = append(w.buf, v) }
func (w *bw) u16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *bw) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *bw) raw(b []byte) { w.buf = append(w.buf, b...) }
func (w *bw) utf8(s string) {
	w.u8(1)
	w.u16(uint16(len(s)))
	w.raw([]byte(s))
}

const targetClassName = "mutation.Target"

// targetClassBytes builds the fixture class:
//
//	public class mutation.Target {
//	    private int count;
//	    public int calc(int, int);  // iadd then isub
//	    public int cmp(int, int);   // one if_icmpge
//	    public static int max(int, int);
//	    public int call(int, int);  // invokestatic max(II)I
//	}
func targetClassBytes(t *testing.T) []byte {
	t.Helper()
	w := &bw{}
	w.u32(0xCAFEBABE)
	w.u16(0)
	w.u16(52)

	w.u16(15)
	w.utf8("mutation/Target") // 1
	w.u8(7)
	w.u16(1) // 2: this class
	w.utf8("java/lang/Object") // 3
	w.u8(7)
	w.u16(3) // 4: super class
	w.utf8("Code")  // 5
	w.utf8("calc")  // 6
	w.utf8("(II)I") // 7
	w.utf8("cmp")   // 8
	w.utf8("max")   // 9
	w.u8(12)
	w.u16(9)
	w.u16(7) // 10: NameAndType max (II)I
	w.u8(10)
	w.u16(2)
	w.u16(10) // 11: Methodref Target.max
	w.utf8("count") // 12
	w.utf8("I")     // 13
	w.utf8("call")  // 14

	w.u16(bytecode.AccPublic)
	w.u16(2)
	w.u16(4)
	w.u16(0)

	w.u16(1)
	w.u16(bytecode.AccPrivate)
	w.u16(12)
	w.u16(13)
	w.u16(0)

	method := func(flags, nameIdx uint16, code []byte, maxLocals uint16) {
		w.u16(flags)
		w.u16(nameIdx)
		w.u16(7)
		w.u16(1)
		w.u16(5)
		cw := &bw{}
		cw.u16(4)
		cw.u16(maxLocals)
		cw.u32(uint32(len(code)))
		cw.raw(code)
		cw.u16(0)
		cw.u16(0)
		w.u32(uint32(len(cw.buf)))
		w.raw(cw.buf)
	}
	w.u16(4)
	method(bytecode.AccPublic, 6, []byte{
		bytecode.ILOAD_0, bytecode.ILOAD_1, bytecode.IADD,
		bytecode.ILOAD_0, bytecode.ISUB, bytecode.IRETURN,
	}, 3)
	method(bytecode.AccPublic, 8, []byte{
		bytecode.ILOAD_0, bytecode.ILOAD_1, bytecode.IF_ICMPGE, 0, 5,
		bytecode.ICONST_1, bytecode.IRETURN,
		bytecode.ICONST_0, bytecode.IRETURN,
	}, 3)
	method(bytecode.AccPublic|bytecode.AccStatic, 9, []byte{
		bytecode.ILOAD_0, bytecode.IRETURN,
	}, 2)
	method(bytecode.AccPublic, 14, []byte{
		bytecode.ILOAD_0, bytecode.ILOAD_1,
		bytecode.INVOKESTATIC, 0, 11,
		bytecode.IRETURN,
	}, 3)

	w.u16(0)
	return w.buf
}

func parseTargetClass(t *testing.T) *bytecode.ClassFile {
	t.Helper()
	cf, err := bytecode.Parse(targetClassBytes(t))
	require.NoError(t, err)
	return cf
}

func methodOpcodes(t *testing.T, cf *bytecode.ClassFile, name string) []byte {
	t.Helper()
	meth, _ := cf.Method(name, "(II)I")
	require.NotNil(t, meth)
	code, err := cf.DecodeCode(meth)
	require.NoError(t, err)
	require.NotNil(t, code)
	ops := make([]byte, 0, code.Instrs.Len())
	for _, ins := range code.Instrs.Instructions() {
		ops = append(ops, ins.Opcode)
	}
	return ops
}

func generate(t *testing.T, op Operator, cf *bytecode.ClassFile) []m.Mutation {
	t.Helper()
	table := m.NewStandardMutationTable()
	require.NoError(t, op.GenerateMutants(table, cf))
	return table.Mutations()
}
