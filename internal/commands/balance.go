package commands

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newBalanceCommand(repoDir *string) *cobra.Command {
	var accountID string
	var recompute bool

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show account balances",
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
			for _, acct := range accounts {
				a, err := p.cfg.Account(acct)
				if err != nil {
					return err
				}
				var balance decimal.Decimal
				if recompute {
					unlock := p.locks.Lock(acct)
					balance, err = p.coordinator().RecomputeBalance(ctx, acct)
					unlock()
				} else {
					balance, err = p.store.GetAccountBalance(ctx, acct)
				}
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%-12s %12s %s\n", acct, balance.StringFixed(2), a.Currency)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "only show this account")
	cmd.Flags().BoolVar(&recompute, "recompute", false, "recompute balances from the ledger")
	return cmd
}
