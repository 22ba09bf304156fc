package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgerkit/internal/importer"
	"github.com/cleared-dev/ledgerkit/internal/ingest"
)

func newImportCommand(repoDir *string) *cobra.Command {
	var accountID string
	var reprocess bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bank or brokerage export into an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			_, err = p.importFile(cmd.Context(), cmd.OutOrStdout(), accountID, args[0], reprocess)
			if isMalformed(err) {
				printf(cmd.ErrOrStderr(), "%s: nothing importable\n", args[0])
			}
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account the export belongs to (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "refresh transactions already in the ledger")

	cmd.AddCommand(newImportScanCommand(repoDir))
	return cmd
}

func newImportScanCommand(repoDir *string) *cobra.Command {
	var reprocess bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import every export waiting under import/<account>/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(*repoDir)
			if err != nil {
				return err
			}
			defer p.Close()

			files, err := importer.Scan(p.root)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				printf(cmd.OutOrStdout(), "No exports to import.\n")
				return nil
			}

			failed := 0
			for _, f := range files {
				res, err := p.importFile(cmd.Context(), cmd.OutOrStdout(), f.AccountID, f.Path, reprocess)
				if err != nil {
					failed++
					if isMalformed(err) {
						printf(cmd.ErrOrStderr(), "%s: nothing importable\n", f.Path)
					} else {
						printf(cmd.ErrOrStderr(), "%s: %v\n", f.Path, err)
					}
					continue
				}
				if res.Parsed == 0 {
					continue
				}
				if err := importer.MarkProcessed(p.root, f.AccountID, f.Name); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d exports failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "refresh transactions already in the ledger")
	return cmd
}

// importFile imports one export under the account's lock and categorizes
// the account afterwards when auto-categorization is on. An export without a
// single usable row is reported and left in place, but is not an error.
func (p *project) importFile(ctx context.Context, out io.Writer, accountID, path string, reprocess bool) (res *ingest.Result, err error) {
	defer func() {
		details := ""
		if res != nil {
			details = fmt.Sprintf("file=%s parsed=%d inserted=%d skipped=%d updated=%d skipped_rows=%d",
				filepath.Base(path), res.Parsed, res.Inserted, res.Skipped, res.Updated, res.SkippedRows)
		}
		p.record("import", accountID, details, err)
	}()

	parser, err := p.parser(accountID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	ctx = p.context(ctx)
	unlock := p.locks.Lock(accountID)
	defer unlock()

	res, err = p.coordinator().ImportFile(ctx, accountID, parser, f, reprocess)
	if err != nil {
		return nil, err
	}
	if res.Parsed == 0 {
		printf(out, "%s: nothing importable (%d rows skipped)\n", filepath.Base(path), res.SkippedRows)
		return res, nil
	}
	printf(out, "%s → %s: %d parsed, %d inserted, %d already imported, %d updated, %d rows skipped, balance %s\n",
		filepath.Base(path), accountID, res.Parsed, res.Inserted, res.Skipped, res.Updated, res.SkippedRows,
		res.Balance.StringFixed(2))

	if !p.cfg.Import.AutoCategorize {
		return res, nil
	}
	stats, err := p.engine().Run(ctx, accountID)
	if err != nil {
		return res, fmt.Errorf("categorizing %s: %w", accountID, err)
	}
	printf(out, "  categorized %d of %d (%d rule, %d bank, %d transfer), %d unmatched\n",
		stats.Categorized(), stats.Total, stats.RuleMatches, stats.BankMatches, stats.TransferMatches, stats.Unmatched)
	return res, nil
}
