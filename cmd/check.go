package cmd

import (
	"github.com/spf13/cobra"
)

// checkCmd represents the check command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Show what build would write, as a diff",
		Long:  checkLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindBuildFlags(cmd)

			return workflow.Check(cmd.Context(), buildArgs(args))
		},
	}

	configureBuildFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
