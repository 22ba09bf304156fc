package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountsCommand(repoDir *string) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect configured accounts",
	}
	accountsCmd.AddCommand(newAccountsListCommand(repoDir), newAccountsPurgeCommand(repoDir))
	return accountsCmd
}

func newAccountsListCommand(repoDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their institution and parser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			for _, id := range p.cfg.AccountIDs() {
				a, err := p.cfg.Account(id)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%-12s %-24s %-16s %s\n", a.ID, a.Name, a.Institution.Name, a.Institution.Parser)
			}
			return nil
		},
	}
}

func newAccountsPurgeCommand(repoDir *string) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "purge <account>",
		Short: "Delete the transactions, balance and recurring patterns of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if !confirm {
				return fmt.Errorf("purging %s deletes its ledger; rerun with --yes", args[0])
			}
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			accountID := args[0]
			defer func() { p.record("accounts purge", accountID, "", err) }()

			if _, err := p.cfg.Account(accountID); err != nil {
				return err
			}
			unlock := p.locks.Lock(accountID)
			defer unlock()
			if err := p.store.DeleteAccount(cmd.Context(), accountID); err != nil {
				return err
			}
			if err := p.patterns.DeletePatterns(cmd.Context(), accountID); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Purged %s\n", accountID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the purge")
	return cmd
}
