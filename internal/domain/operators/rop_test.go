package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jmute.dev/pkg/jmute/internal/bytecode"
)

func TestROPGenerateFlattensSingleCandidate(t *testing.T) {
	cf := parseTargetClass(t)
	mutations := generate(t, ROP{}, cf)

	// cmp has a single conditional branch, so the one-member group is
	// flattened into the bare mutation.
	require.Len(t, mutations, 1)
	mu, ok := mutations[0].(*ROPMutation)
	require.True(t, ok)
	assert.Equal(t, targetClassName, mu.Class)
	assert.Equal(t, "cmp", mu.Method)
	assert.Equal(t, int32(0), mu.RelOffset)
	assert.Equal(t, int32(2), mu.CodeOffset)
	assert.Equal(t, bytecode.IF_ICMPGE, mu.OrigOpcode)
	assert.NotEqual(t, mu.OrigOpcode, mu.MutatedOpcode)
	assert.Contains(t, icmpOps, mu.MutatedOpcode)
}

func TestROPVariantsPerFamily(t *testing.T) {
	tests := []struct {
		name string
		orig byte
		want int
	}{
		{"int comparison", bytecode.IFGE, 5},
		{"int pair comparison", bytecode.IF_ICMPGE, 5},
		{"null test", bytecode.IFNULL, 1},
		{"reference pair comparison", bytecode.IF_ACMPEQ, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu := newROPMutation(targetClassName, "cmp", "(II)I", 2, 0,
				tt.orig, mutatedRelationalOp(tt.orig))
			assert.Len(t, mu.Variants(), tt.want)
		})
	}
}

func TestROPApplyKeepsBranchTarget(t *testing.T) {
	cf := parseTargetClass(t)
	mu := newROPMutation(targetClassName, "cmp", "(II)I", 2, 0,
		bytecode.IF_ICMPGE, bytecode.IF_ICMPLT)

	require.NoError(t, mu.Apply(cf, ROPVariant{opcode: bytecode.IF_ICMPLE}))

	meth, _ := cf.Method("cmp", "(II)I")
	code, err := cf.DecodeCode(meth)
	require.NoError(t, err)
	branch := code.Instrs.Instructions()[2]
	assert.Equal(t, byte(bytecode.IF_ICMPLE), branch.Opcode)
	assert.Equal(t, 7, branch.Target)

	require.NoError(t, mu.Undo(cf))
	assert.Equal(t, targetClassBytes(t), cf.Bytes())
}

func TestROPRejectsNonBranchVariant(t *testing.T) {
	cf := parseTargetClass(t)
	mu := newROPMutation(targetClassName, "cmp", "(II)I", 2, 0,
		bytecode.IF_ICMPGE, bytecode.IF_ICMPLT)
	assert.Error(t, mu.Apply(cf, ROPVariant{opcode: bytecode.GOTO}))
}

func TestMutatedRelationalOpStaysInFamily(t *testing.T) {
	for _, op := range ifIntOps {
		got := mutatedRelationalOp(op)
		assert.NotEqual(t, op, got)
		assert.Contains(t, ifIntOps, got)
	}
	for _, op := range icmpOps {
		got := mutatedRelationalOp(op)
		assert.NotEqual(t, op, got)
		assert.Contains(t, icmpOps, got)
	}
	assert.Equal(t, byte(bytecode.IF_ACMPNE), mutatedRelationalOp(bytecode.IF_ACMPEQ))
	assert.Equal(t, byte(bytecode.IF_ACMPEQ), mutatedRelationalOp(bytecode.IF_ACMPNE))
	assert.Equal(t, byte(bytecode.IFNONNULL), mutatedRelationalOp(bytecode.IFNULL))
	assert.Equal(t, byte(bytecode.IFNULL), mutatedRelationalOp(bytecode.IFNONNULL))
}
