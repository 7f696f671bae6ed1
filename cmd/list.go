package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/controller"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [classes...]",
		Short: "List class files and mutation counts",
		Long:  listLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			classes, err := classFS.ListClasses(args, viper.GetStringSlice(excludeConfigKey))
			if err != nil {
				return err
			}

			counts := make([]controller.ClassCount, 0, len(classes))
			for _, class := range classes {
				tablePath := strings.TrimSuffix(class, ".class") + ".mut"
				mutants, err := adapter.NewMutationIterator(tablePath)
				if err != nil {
					slog.Debug("no mutation table", "class", class)
					continue
				}
				counts = append(counts, controller.ClassCount{
					Class: class,
					Count: int(mutants.Count()),
				})
				if err := mutants.Close(); err != nil {
					return err
				}
			}
			return ui.ShowCounts("Mutations", counts)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
