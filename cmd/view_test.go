package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jmute.dev/pkg/jmute/internal/domain"
)

func fixtureTablePath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	classPath := writeFixtureClass(t, dir, "Target.class")
	_, err := domain.NewGenerator(nil).GenerateFile(classPath, "")
	require.NoError(t, err)
	return filepath.Join(dir, "Target.mut")
}

func TestViewCmd_List(t *testing.T) {
	tablePath := fixtureTablePath(t)

	stub := swapUI(t)
	root := newTestRoot(t, newViewCmd())
	root.SetArgs([]string{"view", "--format", "list", tablePath})

	require.NoError(t, root.Execute())
	require.Len(t, stub.mutations, 1)
}

func TestViewCmd_Table(t *testing.T) {
	tablePath := fixtureTablePath(t)

	stub := swapUI(t)
	root := newTestRoot(t, newViewCmd())
	root.SetArgs([]string{"view", tablePath})

	require.NoError(t, root.Execute())
	// One group row plus one row per member.
	require.Len(t, stub.rows, 3)
	assert.Equal(t, "group", stub.rows[0].Type)
	assert.Equal(t, "AOP", stub.rows[1].Type)
}

func TestViewCmd_UnknownFormat(t *testing.T) {
	tablePath := fixtureTablePath(t)

	root := newTestRoot(t, newViewCmd())
	root.SetArgs([]string{"view", "--format", "csv", tablePath})

	assert.ErrorContains(t, root.Execute(), "unknown format")
}

func TestViewCmd_MissingTable(t *testing.T) {
	root := newTestRoot(t, newViewCmd())
	root.SetArgs([]string{"view", filepath.Join(t.TempDir(), "none.mut")})

	assert.Error(t, root.Execute())
}

func TestViewCmd_RequiresTableArg(t *testing.T) {
	root := newTestRoot(t, newViewCmd())
	root.SetArgs([]string{"view"})

	assert.Error(t, root.Execute())
}
