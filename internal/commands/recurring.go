package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecurringCommand(repoDir *string) *cobra.Command {
	recurringCmd := &cobra.Command{
		Use:   "recurring",
		Short: "Detect and list recurring transactions",
	}
	recurringCmd.AddCommand(newRecurringDetectCommand(repoDir), newRecurringListCommand(repoDir))
	return recurringCmd
}

func newRecurringDetectCommand(repoDir *string) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Find recurring patterns in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			accounts, err := p.accounts(accountID)
			if err != nil {
				return err
			}

			ctx := p.context(cmd.Context())
			detector := p.detector()
			for _, acct := range accounts {
				sum, err := detector.Detect(ctx, acct)
				p.record("recurring detect", acct, fmt.Sprintf("candidates=%d created=%d updated=%d deactivated=%d",
					sum.Candidates, sum.Created, sum.Updated, sum.Deactivated), err)
				if err != nil {
					return fmt.Errorf("detecting patterns for %s: %w", acct, err)
				}
				printf(cmd.OutOrStdout(), "%s: %d recurring, %d new, %d updated, %d deactivated\n",
					acct, sum.Candidates, sum.Created, sum.Updated, sum.Deactivated)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "only analyze this account")
	return cmd
}

func newRecurringListCommand(repoDir *string) *cobra.Command {
	var accountID string
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			accounts, err := p.accounts(accountID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, acct := range accounts {
				patterns, err := p.patterns.ListPatterns(cmd.Context(), acct)
				if err != nil {
					return err
				}
				for _, pat := range patterns {
					if !pat.IsActive && !all {
						continue
					}
					state := ""
					if !pat.IsActive {
						state = " (inactive)"
					}
					printf(out, "%-12s %-9s %-8s %10s  x%-3d last %s  %s%s\n",
						acct, pat.Frequency, pat.Kind, pat.Amount.StringFixed(2), pat.OccurrenceCount,
						pat.LastSeenAt.Format("2006-01-02"), pat.NormalizedDescription, state)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "only list this account")
	cmd.Flags().BoolVar(&all, "all", false, "include inactive patterns")
	return cmd
}
