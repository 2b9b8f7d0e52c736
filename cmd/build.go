package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"splice.dev/pkg/splice/internal/domain"
)

var (
	buildParallelFlag  int
	buildTimeoutFlag   time.Duration
	buildMaxCyclesFlag int
	buildDebugFlag     bool
	buildRecursiveFlag bool
	buildFailFastFlag  bool
)

// buildCmd represents the build command.
var buildCmd = newBuildCmd()

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [paths...]",
		Short: "Expand macro files",
		Long:  buildLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindBuildFlags(cmd)

			return workflow.Build(cmd.Context(), buildArgs(args))
		},
	}

	configureBuildFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

// configureBuildFlags declares the flags shared by build, check and watch.
func configureBuildFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&buildParallelFlag, parallelFlagName, "p", viper.GetInt(buildParallelKey), "number of macro files expanded in parallel")
	cmd.Flags().DurationVar(&buildTimeoutFlag, timeoutFlagName, viper.GetDuration(buildTimeoutKey), "time limit for expanding one file (0 disables)")
	cmd.Flags().IntVar(&buildMaxCyclesFlag, maxCyclesFlagName, viper.GetInt(buildMaxCyclesKey), "rewrite cycles allowed per file before giving up")
	cmd.Flags().BoolVarP(&buildDebugFlag, debugFlagName, "d", viper.GetBool(buildDebugKey), "keep staged modules and journal every evaluation")
	cmd.Flags().BoolVarP(&buildRecursiveFlag, recursiveFlagName, "r", viper.GetBool(buildRecursiveKey), "scan directories recursively")
	cmd.Flags().BoolVar(&buildFailFastFlag, failFastFlagName, viper.GetBool(buildFailFastKey), "cancel remaining files after the first failure")
}

// bindBuildFlags binds the flags of the running command, since several
// commands share the same keys.
func bindBuildFlags(cmd *cobra.Command) {
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), buildParallelKey)
	bindFlagToConfig(cmd.Flags().Lookup(timeoutFlagName), buildTimeoutKey)
	bindFlagToConfig(cmd.Flags().Lookup(maxCyclesFlagName), buildMaxCyclesKey)
	bindFlagToConfig(cmd.Flags().Lookup(debugFlagName), buildDebugKey)
	bindFlagToConfig(cmd.Flags().Lookup(recursiveFlagName), buildRecursiveKey)
	bindFlagToConfig(cmd.Flags().Lookup(failFastFlagName), buildFailFastKey)
}

func buildArgs(args []string) domain.BuildArgs {
	return domain.BuildArgs{
		Paths:     parsePaths(args),
		Exclude:   viper.GetStringSlice(excludeConfigKey),
		Recursive: viper.GetBool(buildRecursiveKey),
		Debug:     viper.GetBool(buildDebugKey),
		Parallel:  viper.GetInt(buildParallelKey),
		Timeout:   viper.GetDuration(buildTimeoutKey),
		MaxCycles: viper.GetInt(buildMaxCyclesKey),
		FailFast:  viper.GetBool(buildFailFastKey),
	}
}
