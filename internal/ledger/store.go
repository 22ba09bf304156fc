// Package ledger persists imported transactions and per-account balances.
//
// Two stores implement Store: FileStore keeps one CSV file per account next
// to a balances file, SQLiteStore keeps everything in a single database.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// ErrNotFound is returned when a transaction ID is not in the ledger.
var ErrNotFound = errors.New("not found")

// Mode controls how UpsertTransactions treats rows that already exist.
type Mode int

const (
	// ModeIgnore leaves existing rows untouched.
	ModeIgnore Mode = iota
	// ModeOverwrite refreshes the imported fields of existing rows and
	// clears any category not set by hand.
	ModeOverwrite
)

// UpsertResult counts what an upsert did.
type UpsertResult struct {
	Inserted int
	Skipped  int
	Updated  int
}

// Assignment is a category chosen for one transaction by the categorization
// engine.
type Assignment struct {
	TransactionID string
	CategoryID    int
	Source        model.CategorySource
	RuleID        string
}

// Store is the ledger persistence contract.
type Store interface {
	UpsertTransactions(ctx context.Context, txns []model.Transaction, mode Mode) (UpsertResult, error)
	ListTransactions(ctx context.Context, accountID string) ([]model.Transaction, error)
	// UncategorizedTransactions returns rows with no category; an empty
	// accountID means every account.
	UncategorizedTransactions(ctx context.Context, accountID string) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id string) (model.Transaction, error)
	// AssignCategories applies assignments to rows that are still
	// uncategorized and returns how many were applied.
	AssignCategories(ctx context.Context, assignments []Assignment) (int, error)
	// SetCategory overwrites the category of one row regardless of its
	// current state.
	SetCategory(ctx context.Context, id string, categoryID int, source model.CategorySource) error
	GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error)
	SetAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal) error
	// DeleteAccount drops every transaction and the balance of an account.
	DeleteAccount(ctx context.Context, accountID string) error
	Close() error
}

// overwrite copies the imported fields of incoming onto existing. A category
// not assigned by hand is cleared so the next categorization run picks the
// row up again.
func overwrite(existing, incoming model.Transaction) model.Transaction {
	existing.Amount = incoming.Amount
	existing.Description = incoming.Description
	existing.RawCategory = incoming.RawCategory
	existing.Reference = incoming.Reference
	existing.AdditionalInfo = incoming.AdditionalInfo
	existing.ValueDate = incoming.ValueDate
	existing.Reconciled = incoming.Reconciled
	if existing.CategorySource != model.SourceManual {
		existing.CategoryID = 0
		existing.CategorySource = model.SourceNone
		existing.RuleID = ""
	}
	return existing
}
