package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerkit/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var repoDir string

	rootCmd := &cobra.Command{
		Use:     "ledgerkit",
		Short:   "Bank and brokerage export ingestion and categorization",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(&repoDir),
		newCategorizeCommand(&repoDir),
		newRulesCommand(&repoDir),
		newRecurringCommand(&repoDir),
		newBalanceCommand(&repoDir),
		newAccountsCommand(&repoDir),
	)

	return rootCmd
}
