package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "jmute.dev/pkg/jmute/internal/model"
)

func TestReportStoreRoundTrip(t *testing.T) {
	store := NewReportStore()
	path := filepath.Join(t.TempDir(), "Target.mut.yaml")

	report := m.ClassReport{
		Class: "mutation.Target",
		Table: "Target.mut.apl",
		Applied: []m.MutationRecord{
			{ID: 2, Type: "AOP", Class: "mutation.Target", Method: "calc", Signature: "(II)I", Variant: "-"},
			{ID: 3, Type: "AOP", Class: "mutation.Target", Method: "calc", Signature: "(II)I", Variant: "*"},
		},
		Rejected: 1,
	}
	require.NoError(t, store.SaveReport(path, report))

	loaded, err := store.LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, report, loaded)
}

func TestReportStoreLoadErrors(t *testing.T) {
	store := NewReportStore()

	t.Run("missing file", func(t *testing.T) {
		_, err := store.LoadReport(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Error(t, err)
	})
	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))
		_, err := store.LoadReport(path)
		assert.ErrorContains(t, err, "could not decode report")
	})
}

func TestBuildClassReport(t *testing.T) {
	group := m.NewMutationGroup("mutation.Target", "calc", "(II)I")
	group.SetID(m.NewMutationID(1))

	report := BuildClassReport("mutation.Target", "Target.mut.apl", []m.Mutation{group})
	assert.Equal(t, "mutation.Target", report.Class)
	assert.Equal(t, "Target.mut.apl", report.Table)
	// An empty group contributes no records.
	assert.Empty(t, report.Applied)
}
