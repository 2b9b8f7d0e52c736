package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var journalYAMLFlag bool

// journalCmd represents the journal command.
var journalCmd = newJournalCmd()

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show the evaluations recorded by debug builds",
		Long: `Print every sandbox exchange recorded by "build --debug": the generated
module, its output or error and how long it took.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := workflow.Journal(cmd.Context())
			if err != nil {
				return err
			}

			if !journalYAMLFlag {
				return ui.DisplayJournal(cmd.Context(), entries)
			}

			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)

			if err := encoder.Encode(entries); err != nil {
				return fmt.Errorf("encode journal: %w", err)
			}

			return encoder.Close()
		},
	}

	cmd.Flags().BoolVar(&journalYAMLFlag, "yaml", false, "print the full entries as YAML")

	return cmd
}

func init() {
	rootCmd.AddCommand(journalCmd)
}
