package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/controller"
)

var viewFormatFlag string
var viewInteractiveFlag bool

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [table]",
		Short: "View a mutation table",
		Long:  "Print the mutations in a mutation table, as a list or a table, or browse them interactively.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := adapter.ReadMutationTable(args[0])
			if err != nil {
				return err
			}

			out := ui
			if viewInteractiveFlag {
				out = controller.NewUI(cmd, true)
			}

			switch viewFormatFlag {
			case "list":
				return out.ShowMutations(table.Mutations())
			case "table":
				return out.ShowTable(controller.RowsFromMutations(table.Mutations()))
			}
			return fmt.Errorf("unknown format %q", viewFormatFlag)
		},
	}

	cmd.Flags().StringVarP(&viewFormatFlag, "format", "f", "table", "output format: list or table")
	cmd.Flags().BoolVarP(&viewInteractiveFlag, "interactive", "i", false, "browse the table interactively")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
