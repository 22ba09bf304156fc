package commands

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/ledgerkit/internal/categorize"
)

func newCategorizeCommand(repoDir *string) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize uncategorized transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			accounts, err := p.accounts(accountID)
			if err != nil {
				return err
			}

			var mu sync.Mutex
			var total categorize.Stats
			defer func() {
				p.record("categorize", accountID, fmt.Sprintf("total=%d rule=%d bank=%d transfer=%d unmatched=%d",
					total.Total, total.RuleMatches, total.BankMatches, total.TransferMatches, total.Unmatched), err)
			}()

			ctx := p.context(cmd.Context())
			engine := p.engine()
			g, ctx := errgroup.WithContext(ctx)
			for _, acct := range accounts {
				g.Go(func() error {
					unlock := p.locks.Lock(acct)
					defer unlock()

					stats, err := engine.Run(ctx, acct)
					if err != nil {
						return fmt.Errorf("categorizing %s: %w", acct, err)
					}
					mu.Lock()
					defer mu.Unlock()
					total.Total += stats.Total
					total.RuleMatches += stats.RuleMatches
					total.BankMatches += stats.BankMatches
					total.TransferMatches += stats.TransferMatches
					total.Unmatched += stats.Unmatched
					printf(cmd.OutOrStdout(), "%s: categorized %d of %d (%d rule, %d bank, %d transfer), %d unmatched\n",
						acct, stats.Categorized(), stats.Total, stats.RuleMatches, stats.BankMatches,
						stats.TransferMatches, stats.Unmatched)
					return nil
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "only categorize this account")

	cmd.AddCommand(newCategorizeSetCommand(repoDir))
	return cmd
}

func newCategorizeSetCommand(repoDir *string) *cobra.Command {
	var learn bool

	cmd := &cobra.Command{
		Use:   "set <transaction-id> <category>",
		Short: "Set a transaction's category by hand",
		Long:  "Set a transaction's category by hand. The category is a numeric ID or a key such as groceries.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			txID := args[0]
			defer func() {
				p.record("categorize set", "", fmt.Sprintf("transaction=%s category=%s", txID, args[1]), err)
			}()

			cat, ok := p.cats.Resolve(args[1])
			if !ok {
				return fmt.Errorf("%w: %q", categorize.ErrUnknownCategory, args[1])
			}

			rule, err := p.engine().Correct(p.context(cmd.Context()), txID, cat.ID, learn)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s → %s\n", txID, cat.Key)
			if rule != nil {
				printf(cmd.OutOrStdout(), "learned rule %s: %s %q\n", rule.ID, rule.MatchType, rule.Pattern)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&learn, "learn", false, "create an exact-match rule from the transaction description")
	return cmd
}
