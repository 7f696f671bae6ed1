package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jmute.dev/pkg/jmute/internal/domain"
)

func TestListCmd(t *testing.T) {
	dir := t.TempDir()
	classPath := writeFixtureClass(t, dir, "Target.class")
	_, err := domain.NewGenerator(nil).GenerateFile(classPath, "")
	require.NoError(t, err)
	// A class without a table is listed nowhere.
	writeFixtureClass(t, dir, "Bare.class")

	stub := swapUI(t)
	root := newTestRoot(t, newListCmd())
	root.SetArgs([]string{"list", dir})

	require.NoError(t, root.Execute())

	require.Len(t, stub.counts, 1)
	assert.Equal(t, classPath, stub.counts[0].Class)
	assert.Equal(t, 1, stub.counts[0].Count)
}

func TestListCmd_RequiresArgs(t *testing.T) {
	root := newTestRoot(t, newListCmd())
	root.SetArgs([]string{"list"})

	assert.Error(t, root.Execute())
}
