package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a splice.yaml seeded with the current defaults",
		Long: `Create splice.yaml in the current directory. It holds the build, sandbox,
journal and log settings in effect right now, so the sandbox command or the
cycle limit can be edited in one place. An existing file is never replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			if err := viper.SafeWriteConfigAs(targetPath); err != nil {
				return fmt.Errorf("write %s: %w", targetPath, err)
			}

			slog.Info("Wrote config file", "path", targetPath)
			cmd.Printf("Wrote %s (sandbox: %v)\n", targetPath, viper.GetStringSlice(sandboxCommandKey))

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
