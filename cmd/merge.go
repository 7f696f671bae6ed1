package cmd

import (
	"github.com/spf13/cobra"

	"jmute.dev/pkg/jmute/internal/adapter"
	m "jmute.dev/pkg/jmute/internal/model"
)

var mergeOutputFlag string

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge [tables...]",
		Short: "Merge mutation tables into one",
		Long: `Merge several mutation tables into a single table. Mutation ids are
reassigned sequentially in the merged table.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			merged := m.NewStandardMutationTable()
			for _, path := range args {
				table, err := adapter.ReadMutationTable(path)
				if err != nil {
					return err
				}
				for _, mut := range table.Mutations() {
					resetIDs(mut)
					if err := merged.AddMutation(mut); err != nil {
						return err
					}
				}
			}

			if err := adapter.WriteMutationTable(mergeOutputFlag, merged); err != nil {
				return err
			}

			cmd.Printf("merged %d mutations from %d tables into %s\n",
				merged.Size(), len(args), mergeOutputFlag)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mergeOutputFlag, "output", "o", "merged.mut", "output table path")

	return cmd
}

// resetIDs clears the ids read from a source table so the output writer
// assigns fresh ones without collisions across tables.
func resetIDs(mut m.Mutation) {
	mut.SetID(m.NewMutationID(0))
	if group, ok := mut.(*m.MutationGroup); ok {
		for _, member := range group.Members() {
			member.SetID(m.NewMutationID(0))
		}
	}
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
