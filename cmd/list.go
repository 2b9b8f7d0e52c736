package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"splice.dev/pkg/splice/internal/domain"
)

var listRecursiveFlag bool

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [paths...]",
		Short: "List macro files and their macro sites",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindFlagToConfig(cmd.Flags().Lookup(recursiveFlagName), buildRecursiveKey)

			return workflow.List(cmd.Context(), domain.BuildArgs{
				Paths:     parsePaths(args),
				Exclude:   viper.GetStringSlice(excludeConfigKey),
				Recursive: viper.GetBool(buildRecursiveKey),
			})
		},
	}

	cmd.Flags().BoolVarP(&listRecursiveFlag, recursiveFlagName, "r", viper.GetBool(buildRecursiveKey), "scan directories recursively")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
