package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/domain"
	m "jmute.dev/pkg/jmute/internal/model"
)

var mutateIDsFlag string
var mutateOperatorsFlag []string
var mutateMethodsFlag []string
var mutateRandomFlag int
var mutateVerifyFlag bool
var mutateParallelFlag int
var mutateClassPathFlag []string
var mutateOutSuffixFlag string
var mutateReportFlag bool

// mutateCmd represents the mutate command.
var mutateCmd = newMutateCmd()

func newMutateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate [classes...]",
		Short: "Apply mutations to class files",
		Long:  mutateLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := buildSelectorFactory()
			if err != nil {
				return err
			}

			opts := domain.MutateOptions{
				Selector:  selector,
				OutSuffix: viper.GetString(outSuffixConfigKey),
				Report:    viper.GetBool(reportConfigKey),
			}
			if mutateVerifyFlag {
				classPath := viper.GetStringSlice(classPathConfigKey)
				opts.Verifier = buildVerifier(classPath)
				if len(classPath) > 0 {
					graph, err := adapter.BuildClassGraph(classPath)
					if err != nil {
						return err
					}
					opts.ClassGraph = graph
				}
			}

			return newBatch().MutateAll(
				cmd.Context(), args,
				viper.GetStringSlice(excludeConfigKey), opts,
			)
		},
	}

	configureMutateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(mutateCmd)
}

func configureMutateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&mutateIDsFlag, "ids", "i", "", "mutation ids to apply, id or id:variant, comma separated")
	cmd.Flags().StringArrayVarP(&mutateOperatorsFlag, "operators", "O", nil, "apply only mutations of these operators (can be repeated)")
	cmd.Flags().StringArrayVarP(&mutateMethodsFlag, "methods", "m", nil, "apply only mutations in these methods (can be repeated)")
	cmd.Flags().IntVarP(&mutateRandomFlag, "random", "r", 0, "apply a random sample of N mutations per class")
	cmd.Flags().BoolVar(&mutateVerifyFlag, "verify", false, "verify each mutation and roll back rejects")

	cmd.Flags().IntVarP(&mutateParallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of parallel workers")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.Flags().StringArrayVar(&mutateClassPathFlag, classPathFlagName, viper.GetStringSlice(classPathConfigKey), "class path roots for verification (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(classPathFlagName), classPathConfigKey)

	cmd.Flags().StringVar(&mutateOutSuffixFlag, "out-suffix", viper.GetString(outSuffixConfigKey), "write mutants to <class><suffix> instead of overwriting")
	bindFlagToConfig(cmd.Flags().Lookup("out-suffix"), outSuffixConfigKey)

	cmd.Flags().BoolVar(&mutateReportFlag, "report", viper.GetBool(reportConfigKey), "write a YAML report next to each mutation table")
	bindFlagToConfig(cmd.Flags().Lookup("report"), reportConfigKey)
}

// buildSelectorFactory turns the selection flags into a per-class
// selector constructor. Random selectors draw per table, so every class
// needs a fresh one. No selection flags means select everything.
func buildSelectorFactory() (func() m.MutationSelector, error) {
	switch {
	case mutateIDsFlag != "":
		selections, err := domain.ParseIDSelection(mutateIDsFlag)
		if err != nil {
			return nil, err
		}
		return func() m.MutationSelector { return domain.NewIDSelector(selections) }, nil
	case mutateRandomFlag > 0 && len(mutateOperatorsFlag) > 0:
		return func() m.MutationSelector {
			return domain.NewRandomOperatorSelector(mutateOperatorsFlag, mutateRandomFlag)
		}, nil
	case mutateRandomFlag > 0 && len(mutateMethodsFlag) > 0:
		return func() m.MutationSelector {
			return domain.NewRandomMethodSelector(mutateMethodsFlag, mutateRandomFlag)
		}, nil
	case mutateRandomFlag > 0:
		return func() m.MutationSelector { return domain.NewRandomIDSelector(mutateRandomFlag) }, nil
	case len(mutateOperatorsFlag) > 0:
		return func() m.MutationSelector { return domain.NewOperatorSelector(mutateOperatorsFlag) }, nil
	case len(mutateMethodsFlag) > 0:
		return func() m.MutationSelector { return domain.NewMethodSelector(mutateMethodsFlag) }, nil
	}
	return nil, nil
}

// buildVerifier picks the configured external command when one is set,
// the structural check otherwise.
func buildVerifier(classPath []string) adapter.Verifier {
	if command := viper.GetString(verifyCommandKey); command != "" {
		verifier := adapter.NewCommandVerifier(command, viper.GetStringSlice(verifyArgsKey))
		verifier.ClassPath = classPath
		return verifier
	}
	return &adapter.StructuralVerifier{ClassPath: classPath}
}
