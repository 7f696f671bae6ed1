// Package cmd provides the root command and CLI setup for jmute.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/controller"
	"jmute.dev/pkg/jmute/internal/domain"
)

var classFS adapter.ClassFS
var reportStore adapter.ReportStore
var ui controller.UI

// excludePatterns is a root-level flag that filters class files for
// applicable commands.
var excludePatterns []string

var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	classFS = adapter.NewLocalClassFS()
	reportStore = adapter.NewReportStore()
}

const classArgsHelp = `Class arguments may be .class files or directories:
  - build/classes          recursively scan for .class files
  - A.class B.class        individual class files`

const rootLongDescription = `Jmute mutates compiled JVM class files for mutation testing. It
generates mutation tables from classes, selectively applies mutations
to produce mutants, and records what was applied.

` + classArgsHelp

const generateLongDescription = `Generate a mutation table (<class>.mut) next to every class file found
under the given paths.

` + classArgsHelp

const mutateLongDescription = `Apply mutations from each class's mutation table to the class. The
applied subset is recorded in <class>.mut.apl; rejected mutations are
rolled back.

` + classArgsHelp

const listLongDescription = `List mutation tables and the number of mutations they hold.

` + classArgsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jmute",
		Short: "JVM class file mutation tool",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringArrayVarP(
			&excludePatterns, excludeFlagName, "x",
			viper.GetStringSlice(excludeConfigKey),
			"exclude class files matching regex (can be repeated)",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newBatch() *domain.Batch {
	return domain.NewBatch(classFS, reportStore, ui, viper.GetInt(parallelConfigKey))
}
