package cmd

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRootCmd(t *testing.T) {
	cmd := baseRootCmd()
	assert.Equal(t, "jmute", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, rootLongDescription, cmd.Long)
}

func TestRootCmd_HelpOutput(t *testing.T) {
	redirectLog(t)
	cmd := baseRootCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(&bytes.Buffer{})

	cmd.SetArgs([]string{})
	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, output.String(), "Usage:")
	assert.Contains(t, output.String(), "Class arguments may be .class files or directories")
}

func TestInit(t *testing.T) {
	// Test that init() created all the necessary instances
	assert.NotNil(t, ui)
	assert.NotNil(t, classFS)
	assert.NotNil(t, reportStore)
}

func TestExecute(t *testing.T) {
	originalRootCmd := rootCmd
	defer func() { rootCmd = originalRootCmd }()

	mockCmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	mockCmd.SetOut(&bytes.Buffer{})
	mockCmd.SetErr(&bytes.Buffer{})

	rootCmd = mockCmd

	// Execute should not panic or exit on success.
	Execute()
}

func TestExecute_WithError(t *testing.T) {
	// Execute calls os.Exit(1) on failure, so only the command error
	// itself is checked here.
	mockCmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("command failed")
		},
	}
	mockCmd.SetOut(&bytes.Buffer{})
	mockCmd.SetErr(&bytes.Buffer{})

	err := mockCmd.Execute()
	require.Error(t, err)
}
