package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jmute.dev/pkg/jmute/internal/adapter"
)

var generateParallelFlag int
var generateConfigFlag string

// generateCmd represents the generate command.
var generateCmd = newGenerateCmd()

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [classes...]",
		Short: "Generate mutation tables for class files",
		Long:  generateLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadOperatorConfig(viper.GetString(operatorConfigKey))
			if err != nil {
				return err
			}

			return newBatch().GenerateAll(
				cmd.Context(), args,
				viper.GetStringSlice(excludeConfigKey), config,
			)
		},
	}

	configureGenerateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func configureGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&generateParallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of parallel workers")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.Flags().StringVarP(&generateConfigFlag, "config", "c", viper.GetString(operatorConfigKey), "operator configuration file")
	bindFlagToConfig(cmd.Flags().Lookup("config"), operatorConfigKey)
}

// loadOperatorConfig reads the operator configuration file. An empty
// path enables the default operator set.
func loadOperatorConfig(path string) (*adapter.MutatorConfiguration, error) {
	if path == "" {
		return nil, nil
	}

	return adapter.ReadConfiguration(path)
}
