package bytecode

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branchCode() []byte {
	// 0: iload_1
	// 1: ifeq 6
	// 4: iconst_1
	// 5: ireturn
	// 6: iconst_0
	// 7: ireturn
	return []byte{ILOAD_1, IFEQ, 0x00, 0x05, ICONST_1, IRETURN, ICONST_0, IRETURN}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	code := branchCode()
	il, err := DecodeInstructions(code)
	require.NoError(t, err)
	require.Equal(t, 6, il.Len())

	ifeq := il.Instructions()[1]
	assert.Equal(t, IFEQ, ifeq.Opcode)
	assert.Equal(t, 6, ifeq.Target)

	out, err := il.Encode()
	require.NoError(t, err)
	assert.Equal(t, code, out)
}

func TestDecodeRejectsBadCode(t *testing.T) {
	_, err := DecodeInstructions([]byte{0xcb})
	assert.ErrorIs(t, err, ErrBadFormat)

	_, err = DecodeInstructions([]byte{IFEQ, 0x00})
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestInsertShiftsBranchTargets(t *testing.T) {
	il, err := DecodeInstructions(branchCode())
	require.NoError(t, err)

	il.InsertAfter(0, Simple(NOP))
	remap := il.SetPositions()

	assert.Equal(t, 2, remap[1])
	assert.Equal(t, 7, remap[6])
	assert.Equal(t, 9, remap[8]) // end of code

	out, err := il.Encode()
	require.NoError(t, err)
	want := []byte{ILOAD_1, NOP, IFEQ, 0x00, 0x05, ICONST_1, IRETURN, ICONST_0, IRETURN}
	assert.Equal(t, want, out)
}

func TestTableSwitchRoundTrip(t *testing.T) {
	//  0: iload_1
	//  1: tableswitch {default: 28, 0: 24, 1: 26}  (2 pad bytes)
	// 24: iconst_0
	// 25: ireturn
	// 26: iconst_1
	// 27: ireturn
	// 28: iconst_2
	// 29: ireturn
	code := []byte{
		ILOAD_1,
		TABLESWITCH, 0x00, 0x00,
		0x00, 0x00, 0x00, 27, // default
		0x00, 0x00, 0x00, 0, // low
		0x00, 0x00, 0x00, 1, // high
		0x00, 0x00, 0x00, 23,
		0x00, 0x00, 0x00, 25,
		ICONST_0, IRETURN,
		ICONST_1, IRETURN,
		ICONST_2, IRETURN,
	}
	il, err := DecodeInstructions(code)
	require.NoError(t, err)
	require.Equal(t, 8, il.Len())

	sw := il.Instructions()[1]
	assert.Equal(t, 28, sw.SwitchDefault)
	assert.Equal(t, []int{24, 26}, sw.SwitchTargets)

	out, err := il.Encode()
	require.NoError(t, err)
	assert.Equal(t, code, out)
}

func TestLookupSwitchRoundTrip(t *testing.T) {
	//  0: iload_1
	//  1: lookupswitch {default: 22, 7: 20}  (2 pad bytes)
	// 20: iconst_1
	// 21: ireturn
	// 22: iconst_0
	// 23: ireturn
	code := []byte{
		ILOAD_1,
		LOOKUPSWITCH, 0x00, 0x00,
		0x00, 0x00, 0x00, 21, // default
		0x00, 0x00, 0x00, 1, // npairs
		0x00, 0x00, 0x00, 7,
		0x00, 0x00, 0x00, 19,
		ICONST_1, IRETURN,
		ICONST_0, IRETURN,
	}
	il, err := DecodeInstructions(code)
	require.NoError(t, err)

	sw := il.Instructions()[1]
	assert.Equal(t, 22, sw.SwitchDefault)
	assert.Equal(t, []int32{7}, sw.SwitchKeys)
	assert.Equal(t, []int{20}, sw.SwitchTargets)

	out, err := il.Encode()
	require.NoError(t, err)
	assert.Equal(t, code, out)
}

func TestCommitCodeIdentity(t *testing.T) {
	data := testClassBytes(t, branchCode(), []ExceptionHandler{
		{StartPC: 0, EndPC: 6, HandlerPC: 6, CatchType: 0},
	})
	cf, err := Parse(data)
	require.NoError(t, err)

	m, _ := cf.Method("run", "()I")
	require.NotNil(t, m)
	c, err := cf.DecodeCode(m)
	require.NoError(t, err)
	require.NotNil(t, c)

	require.NoError(t, cf.CommitCode(m, c))
	if diff := cmp.Diff(data, cf.Bytes()); diff != "" {
		t.Errorf("unchanged commit altered bytes (-want +got):\n%s", diff)
	}
}

func TestCommitCodeRemapsHandlers(t *testing.T) {
	cf := parseTestClass(t, branchCode(), []ExceptionHandler{
		{StartPC: 0, EndPC: 6, HandlerPC: 6, CatchType: 0},
	})
	m, _ := cf.Method("run", "()I")
	c, err := cf.DecodeCode(m)
	require.NoError(t, err)

	c.Instrs.InsertAfter(0, Simple(NOP))
	require.NoError(t, cf.CommitCode(m, c))

	c2, err := cf.DecodeCode(m)
	require.NoError(t, err)
	require.Len(t, c2.Handlers, 1)
	assert.Equal(t, ExceptionHandler{StartPC: 0, EndPC: 7, HandlerPC: 7}, c2.Handlers[0])
	assert.Equal(t, 9, c2.Instrs.ByteLength())
}

func TestDecodeCodeAbsentForAbstract(t *testing.T) {
	cf := parseTestClass(t, []byte{ICONST_0, IRETURN}, nil)
	m := &Member{AccessFlags: AccAbstract, NameIndex: 5, DescIndex: 6}
	c, err := cf.DecodeCode(m)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestStackEffect(t *testing.T) {
	cf := parseTestClass(t, []byte{ICONST_0, IRETURN}, nil)
	pool := cf.Pool

	cases := []struct {
		name     string
		ins      *Instruction
		push, pop int
	}{
		{"iadd", Simple(IADD), 1, 2},
		{"ladd", Simple(LADD), 2, 4},
		{"invokevirtual (II)I", &Instruction{Opcode: INVOKEVIRTUAL, Operands: []byte{0, 11}}, 1, 3},
		{"invokestatic (II)I", &Instruction{Opcode: INVOKESTATIC, Operands: []byte{0, 11}}, 1, 2},
		{"getfield J", &Instruction{Opcode: GETFIELD, Operands: []byte{0, 15}}, 2, 1},
		{"putfield J", &Instruction{Opcode: PUTFIELD, Operands: []byte{0, 15}}, 0, 3},
		{"getstatic J", &Instruction{Opcode: GETSTATIC, Operands: []byte{0, 15}}, 2, 0},
		{"putstatic J", &Instruction{Opcode: PUTSTATIC, Operands: []byte{0, 15}}, 0, 2},
		{"multianewarray dims=3", &Instruction{Opcode: MULTIANEWARRAY, Operands: []byte{0, 2, 3}}, 1, 3},
		{"wide iload", &Instruction{Opcode: WIDE, Operands: []byte{ILOAD, 0x01, 0x00}}, 1, 0},
		{"wide lstore", &Instruction{Opcode: WIDE, Operands: []byte{LSTORE, 0x01, 0x00}}, 0, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			push, pop, err := StackEffect(tc.ins, pool)
			require.NoError(t, err)
			assert.Equal(t, tc.push, push, "push")
			assert.Equal(t, tc.pop, pop, "pop")
		})
	}
}
