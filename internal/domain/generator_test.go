package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

func TestOperatorNames(t *testing.T) {
	assert.Equal(t, []string{"AOP", "ROP", "AFC", "AOC"}, OperatorNames())
}

func TestGenerateWithDefaults(t *testing.T) {
	cf, err := bytecode.Parse(targetClassBytes(t))
	require.NoError(t, err)

	table, err := NewGenerator(nil).Generate(cf)
	require.NoError(t, err)

	// The fixture only has arithmetic candidates: one AOP group.
	require.Equal(t, 1, table.Size())
	group, ok := table.Mutations()[0].(*m.MutationGroup)
	require.True(t, ok)
	assert.Equal(t, 2, group.Size())
	assert.Equal(t, "calc", group.MethodName())
}

func TestGenerateUnknownOperator(t *testing.T) {
	config, err := adapter.ParseConfiguration("global { defaultEnabled=false }\nXYZ {\n}\n")
	require.NoError(t, err)

	cf, err := bytecode.Parse(targetClassBytes(t))
	require.NoError(t, err)

	_, err = NewGenerator(config).Generate(cf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mutation operator")
}

func TestGenerateFile(t *testing.T) {
	dir := t.TempDir()
	classPath := filepath.Join(dir, "Target.class")
	require.NoError(t, os.WriteFile(classPath, targetClassBytes(t), 0o644))

	count, err := NewGenerator(nil).GenerateFile(classPath, "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	table, err := adapter.ReadMutationTable(filepath.Join(dir, "Target.mut"))
	require.NoError(t, err)
	require.Equal(t, 1, table.Size())
	group, ok := table.Mutations()[0].(*m.MutationGroup)
	require.True(t, ok)
	assert.Equal(t, int32(1), group.ID().Int())
}

func TestGenerateFileErrors(t *testing.T) {
	t.Run("missing class", func(t *testing.T) {
		_, err := NewGenerator(nil).GenerateFile(filepath.Join(t.TempDir(), "nope.class"), "")
		assert.Error(t, err)
	})
	t.Run("unparsable class", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.class")
		require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
		_, err := NewGenerator(nil).GenerateFile(path, "")
		assert.Error(t, err)
	})
}
