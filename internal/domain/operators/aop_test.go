package operators

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

func TestAOPGenerateGroupsPerMethod(t *testing.T) {
	cf := parseTargetClass(t)
	mutations := generate(t, AOP{}, cf)

	// Only calc has arithmetic instructions: iadd and isub form one
	// group of two.
	require.Len(t, mutations, 1)
	group, ok := mutations[0].(*m.MutationGroup)
	require.True(t, ok)
	require.Equal(t, 2, group.Size())
	assert.Equal(t, targetClassName, group.ClassName())
	assert.Equal(t, "calc", group.MethodName())
	assert.Equal(t, "(II)I", group.Signature())

	first := group.Members()[0].(*AOPMutation)
	second := group.Members()[1].(*AOPMutation)
	assert.Equal(t, int32(0), first.RelOffset)
	assert.Equal(t, bytecode.IADD, first.OrigOpcode)
	assert.Equal(t, int32(2), first.CodeOffset)
	assert.Equal(t, int32(1), second.RelOffset)
	assert.Equal(t, bytecode.ISUB, second.OrigOpcode)
	assert.Equal(t, int32(4), second.CodeOffset)

	for _, mu := range []*AOPMutation{first, second} {
		assert.NotEqual(t, mu.OrigOpcode, mu.MutatedOpcode)
		assert.Contains(t, arithmeticFamily(mu.OrigOpcode), mu.MutatedOpcode)
	}
}

func TestAOPVariants(t *testing.T) {
	mu := newAOPMutation(targetClassName, "calc", "(II)I", 2, 0, bytecode.IADD, bytecode.ISUB)

	variants := mu.Variants()
	require.Len(t, variants, 4)
	labels := make([]string, len(variants))
	for i, v := range variants {
		labels[i] = v.String()
	}
	assert.Equal(t, []string{"-", "*", "/", "%"}, labels)
	assert.Equal(t, "-", mu.DefaultVariant().String())
}

func TestAOPApplyUndo(t *testing.T) {
	cf := parseTargetClass(t)
	mu := newAOPMutation(targetClassName, "calc", "(II)I", 2, 0, bytecode.IADD, bytecode.ISUB)

	require.NoError(t, mu.Apply(cf, AOPVariant{opcode: bytecode.IMUL}))
	assert.Equal(t, []byte{
		bytecode.ILOAD_0, bytecode.ILOAD_1, bytecode.IMUL,
		bytecode.ILOAD_0, bytecode.ISUB, bytecode.IRETURN,
	}, methodOpcodes(t, cf, "calc"))

	require.NoError(t, mu.Undo(cf))
	assert.Equal(t, targetClassBytes(t), cf.Bytes())
}

func TestAOPApplyDefaultVariant(t *testing.T) {
	cf := parseTargetClass(t)
	mu := newAOPMutation(targetClassName, "calc", "(II)I", 4, 1, bytecode.ISUB, bytecode.IDIV)

	require.NoError(t, mu.Apply(cf, nil))
	assert.Equal(t, byte(bytecode.IDIV), methodOpcodes(t, cf, "calc")[4])
}

func TestAOPApplyErrors(t *testing.T) {
	t.Run("wrong class", func(t *testing.T) {
		cf := parseTargetClass(t)
		mu := newAOPMutation("other.Class", "calc", "(II)I", 2, 0, bytecode.IADD, bytecode.ISUB)
		assert.Error(t, mu.Apply(cf, nil))
	})
	t.Run("missing method", func(t *testing.T) {
		cf := parseTargetClass(t)
		mu := newAOPMutation(targetClassName, "nope", "(II)I", 2, 0, bytecode.IADD, bytecode.ISUB)
		assert.Error(t, mu.Apply(cf, nil))
	})
	t.Run("opcode mismatch", func(t *testing.T) {
		cf := parseTargetClass(t)
		mu := newAOPMutation(targetClassName, "calc", "(II)I", 2, 0, bytecode.IMUL, bytecode.IADD)
		err := mu.Apply(cf, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "opcode mismatch")
		// The failed apply must not leave the class half mutated.
		assert.Equal(t, targetClassBytes(t), cf.Bytes())
	})
	t.Run("undo before apply", func(t *testing.T) {
		cf := parseTargetClass(t)
		mu := newAOPMutation(targetClassName, "calc", "(II)I", 2, 0, bytecode.IADD, bytecode.ISUB)
		assert.Error(t, mu.Undo(cf))
	})
}

func TestAOPGroupApplyResumesScan(t *testing.T) {
	cf := parseTargetClass(t)
	meth, _ := cf.Method("calc", "(II)I")
	require.NotNil(t, meth)
	code, err := cf.DecodeCode(meth)
	require.NoError(t, err)

	first := newAOPMutation(targetClassName, "calc", "(II)I", 2, 0, bytecode.IADD, bytecode.ISUB)
	second := newAOPMutation(targetClassName, "calc", "(II)I", 4, 1, bytecode.ISUB, bytecode.IADD)
	link := m.LinkData{}

	require.NoError(t, first.ApplyInGroup(cf, code, link, AOPVariant{opcode: bytecode.IREM}))
	require.NoError(t, second.ApplyInGroup(cf, code, link, AOPVariant{opcode: bytecode.IMUL}))

	instrs := code.Instrs.Instructions()
	assert.Equal(t, byte(bytecode.IREM), instrs[2].Opcode)
	assert.Equal(t, byte(bytecode.IMUL), instrs[4].Opcode)
	assert.Equal(t, int32(2), link["AOP.relOffset"])

	require.NoError(t, second.UndoInGroup(code, link))
	require.NoError(t, first.UndoInGroup(code, link))
	assert.Equal(t, byte(bytecode.IADD), instrs[2].Opcode)
	assert.Equal(t, byte(bytecode.ISUB), instrs[4].Opcode)
}

func TestAOPSerializeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aop.mut")
	w, err := adapter.NewMutationFileWriter(path, m.NewStringTable())
	require.NoError(t, err)

	mu := newAOPMutation(targetClassName, "calc", "(II)I", 2, 0, bytecode.IADD, bytecode.ISUB)
	require.NoError(t, w.WriteMutation(mu))
	require.NoError(t, w.Close(1))

	r, err := adapter.NewMutationFileReader(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadMutation()
	require.NoError(t, err)
	back, ok := got.(*AOPMutation)
	require.True(t, ok)
	assert.Equal(t, mu.ID(), back.ID())
	assert.Equal(t, mu.Class, back.Class)
	assert.Equal(t, mu.Method, back.Method)
	assert.Equal(t, mu.Sig, back.Sig)
	assert.Equal(t, mu.CodeOffset, back.CodeOffset)
	assert.Equal(t, mu.RelOffset, back.RelOffset)
	assert.Equal(t, mu.OrigOpcode, back.OrigOpcode)
	assert.Equal(t, mu.MutatedOpcode, back.MutatedOpcode)
}
