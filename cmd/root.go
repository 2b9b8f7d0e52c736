// Package cmd provides the root command and CLI setup for splice.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"splice.dev/pkg/splice/internal/adapter"
	"splice.dev/pkg/splice/internal/controller"
	"splice.dev/pkg/splice/internal/domain"
	m "splice.dev/pkg/splice/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var sandbox adapter.Sandbox
var journalStore adapter.JournalStore
var workflow domain.Workflow
var ui controller.UI

// excludePatterns is a root-level flag that filters files for applicable commands.
var excludePatterns []string

var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	sandbox = adapter.NewProcessSandbox(viper.GetStringSlice(sandboxCommandKey))
	journalStore = adapter.NewSpillJournalStore(m.Path(viper.GetString(journalPathKey)))
	workflow = domain.NewWorkflow(fsAdapter, sandbox, ui, journalStore)
}

const pathPatternsHelp = `Paths name macro files (name.macro.ext) or directories to scan:
  - ./...          recursively scan current directory
  - ./src/...      recursively scan src directory
  - ./a ./b.macro.ts  scan a directory and a single file`

const rootLongDescription = `Splice is a source-to-source macro preprocessor. It finds $name$(...) calls
in name.macro.ext files, evaluates each call in a sandboxed runtime and
writes name.ext with every call replaced by its output.

` + pathPatternsHelp

const buildLongDescription = `Expand macro files and write their outputs (default: current directory).

` + pathPatternsHelp

const checkLongDescription = `Expand macro files without writing and print a unified diff of each
input against its expansion.

` + pathPatternsHelp

const listLongDescription = `List macro files with the number of definitions, calls, imports and
directives found in each, without evaluating anything.

` + pathPatternsHelp

const watchLongDescription = `Build macro files, then rebuild each one whenever it changes.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "splice",
		Short:         "Macro preprocessor for $name$(...) calls",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude files matching regex (can be repeated)")
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)

	closeJournalStore()

	if err != nil {
		stop()
		os.Exit(1)
	}
}

// closeJournalStore releases the journal spill file if a command opened it.
func closeJournalStore() {
	if err := journalStore.Close(); err != nil {
		slog.Error("Failed to close journal", "error", err)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
