// Package ingest turns parsed exports into ledger rows: it assigns
// deterministic identities, deduplicates against what is already stored and
// keeps the account balance current.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/id"
	"github.com/cleared-dev/ledgerkit/internal/importer"
	"github.com/cleared-dev/ledgerkit/internal/ledger"
	"github.com/cleared-dev/ledgerkit/internal/logger"
	"github.com/cleared-dev/ledgerkit/internal/model"
)

// Accounts resolves an account to the parser key of its institution.
// Unknown accounts are configuration errors.
type Accounts interface {
	ParserKey(accountID string) (string, error)
}

// Result summarizes one import run.
type Result struct {
	ImportID    string
	AccountID   string
	Parsed      int
	Inserted    int
	Skipped     int
	Updated     int
	SkippedRows int
	Balance     decimal.Decimal
}

// Coordinator persists parsed transactions for configured accounts.
type Coordinator struct {
	store    ledger.Store
	accounts Accounts
	now      func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store ledger.Store, accounts Accounts) *Coordinator {
	return &Coordinator{store: store, accounts: accounts, now: time.Now}
}

// Import inserts transactions not yet in the ledger and leaves existing ones
// untouched. Importing the same export twice inserts nothing the second time.
func (c *Coordinator) Import(ctx context.Context, accountID string, parsed []model.ParsedTransaction) (*Result, error) {
	return c.run(ctx, accountID, parsed, ledger.ModeIgnore)
}

// Reprocess is Import that refreshes the imported fields of existing rows and
// clears their non-manual category assignments.
func (c *Coordinator) Reprocess(ctx context.Context, accountID string, parsed []model.ParsedTransaction) (*Result, error) {
	return c.run(ctx, accountID, parsed, ledger.ModeOverwrite)
}

// ImportFile parses r with p and imports the result. SkippedRows carries the
// parser's skipped row count.
func (c *Coordinator) ImportFile(ctx context.Context, accountID string, p importer.Parser, r io.Reader, reprocess bool) (*Result, error) {
	parsed, err := p.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s export: %w", p.Key(), err)
	}

	mode := ledger.ModeIgnore
	if reprocess {
		mode = ledger.ModeOverwrite
	}
	res, err := c.run(ctx, accountID, parsed.Transactions, mode)
	if err != nil {
		return nil, err
	}
	res.SkippedRows += parsed.SkippedRows
	return res, nil
}

func (c *Coordinator) run(ctx context.Context, accountID string, parsed []model.ParsedTransaction, mode ledger.Mode) (*Result, error) {
	source, err := c.accounts.ParserKey(accountID)
	if err != nil {
		return nil, err
	}

	usable := usableRows(parsed)
	res := &Result{
		ImportID:    id.NewImportID(),
		AccountID:   accountID,
		Parsed:      len(usable),
		SkippedRows: len(parsed) - len(usable),
	}
	log := logger.WithAccount(logger.FromContext(ctx), accountID).With().Str("import_id", res.ImportID).Logger()
	if res.SkippedRows > 0 {
		log.Warn().Int("rows", res.SkippedRows).Msg("dropping rows without a positive amount")
	}
	parsed = usable

	txns := Build(accountID, source, res.ImportID, c.now().UTC(), parsed)
	if len(txns) > 0 {
		up, err := c.store.UpsertTransactions(ctx, txns, mode)
		if err != nil {
			return nil, fmt.Errorf("storing transactions for %s: %w", accountID, err)
		}
		res.Inserted, res.Skipped, res.Updated = up.Inserted, up.Skipped, up.Updated
	}

	res.Balance, err = c.RecomputeBalance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("parsed", res.Parsed).
		Int("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Int("updated", res.Updated).
		Str("balance", res.Balance.StringFixed(2)).
		Msg("import complete")
	return res, nil
}

// RecomputeBalance stores and returns Σ income − Σ expense over every
// transaction of the account. Transfers do not move the balance.
func (c *Coordinator) RecomputeBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	txns, err := c.store.ListTransactions(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("listing transactions for %s: %w", accountID, err)
	}
	balance := Balance(txns)
	if err := c.store.SetAccountBalance(ctx, accountID, balance); err != nil {
		return decimal.Zero, fmt.Errorf("storing balance for %s: %w", accountID, err)
	}
	return balance, nil
}

// usableRows drops rows whose amount is not positive once rounded to the
// cent. The ledger rejects such rows, and one of them would fail the batch.
func usableRows(parsed []model.ParsedTransaction) []model.ParsedTransaction {
	kept := make([]model.ParsedTransaction, 0, len(parsed))
	for _, p := range parsed {
		if p.Amount.Round(2).Sign() > 0 {
			kept = append(kept, p)
		}
	}
	return kept
}

// Build converts parsed rows into ledger transactions. Position counts rows
// sharing a date, in file order, starting at 1.
func Build(accountID, source, importID string, importedAt time.Time, parsed []model.ParsedTransaction) []model.Transaction {
	positions := make(map[string]int)
	txns := make([]model.Transaction, 0, len(parsed))
	for _, p := range parsed {
		day := p.Date.Format("2006-01-02")
		positions[day]++
		pos := positions[day]
		amount := p.Amount.Round(2)

		txns = append(txns, model.Transaction{
			ID:             id.TransactionID(accountID, p.Date, amount, p.Kind, pos),
			AccountID:      accountID,
			Source:         source,
			Date:           p.Date,
			ValueDate:      p.ValueDate,
			Description:    p.Description,
			Amount:         amount,
			Kind:           p.Kind,
			RawCategory:    p.RawCategory,
			Reference:      p.Reference,
			AdditionalInfo: p.AdditionalInfo,
			Reconciled:     p.Reconciled,
			Position:       pos,
			ImportID:       importID,
			ImportedAt:     importedAt,
		})
	}
	return txns
}

// Balance returns Σ income − Σ expense.
func Balance(txns []model.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.SignedAmount())
	}
	return total
}
