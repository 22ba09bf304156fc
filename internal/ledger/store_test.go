package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgerkit/internal/categories"
	"github.com/cleared-dev/ledgerkit/internal/model"
)

// stores returns a fresh instance of every Store implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), categories.Default())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"file":   NewFileStore(t.TempDir(), categories.Default()),
		"sqlite": sqlite,
	}
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func sampleTxns() []model.Transaction {
	return []model.Transaction{
		txn("checking", 3, "45.20", model.KindExpense, 1, "CB CARREFOUR"),
		txn("checking", 3, "45.20", model.KindExpense, 2, "CB CARREFOUR"),
		txn("checking", 5, "2850.00", model.KindIncome, 1, "VIR SALAIRE"),
		txn("checking", 7, "500.00", model.KindTransfer, 1, "VIR LIVRET"),
	}
}

func TestStore_UpsertIgnore(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		res, err := s.UpsertTransactions(ctx, sampleTxns(), ModeIgnore)
		require.NoError(t, err)
		assert.Equal(t, UpsertResult{Inserted: 4}, res)

		res, err = s.UpsertTransactions(ctx, sampleTxns(), ModeIgnore)
		require.NoError(t, err)
		assert.Equal(t, UpsertResult{Skipped: 4}, res)

		got, err := s.ListTransactions(ctx, "checking")
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, 1, got[0].Position)
		assert.Equal(t, 2, got[1].Position)
		assert.Equal(t, "VIR LIVRET", got[3].Description)
	})
}

func TestStore_UpsertRejectsInvalid(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		bad := sampleTxns()[0]
		bad.ID = "tampered"
		_, err := s.UpsertTransactions(context.Background(), []model.Transaction{bad}, ModeIgnore)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})
}

func TestStore_UpsertOverwrite(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		txns := sampleTxns()
		_, err := s.UpsertTransactions(ctx, txns, ModeIgnore)
		require.NoError(t, err)

		// One row categorized by a rule, one by hand.
		_, err = s.AssignCategories(ctx, []Assignment{{TransactionID: txns[0].ID, CategoryID: 100, Source: model.SourceRule, RuleID: "rule_0123456789ab"}})
		require.NoError(t, err)
		require.NoError(t, s.SetCategory(ctx, txns[2].ID, 200, model.SourceManual))

		txns[0].Description = "CB CARREFOUR MARKET"
		txns[0].Reference = "REF-1"
		txns[2].Description = "VIR SALAIRE ACME"
		res, err := s.UpsertTransactions(ctx, txns, ModeOverwrite)
		require.NoError(t, err)
		assert.Equal(t, UpsertResult{Updated: 4}, res)

		first, err := s.GetTransaction(ctx, txns[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "CB CARREFOUR MARKET", first.Description)
		assert.Equal(t, "REF-1", first.Reference)
		assert.Zero(t, first.CategoryID, "rule category cleared")
		assert.Empty(t, first.RuleID)

		salary, err := s.GetTransaction(ctx, txns[2].ID)
		require.NoError(t, err)
		assert.Equal(t, "VIR SALAIRE ACME", salary.Description)
		assert.Equal(t, 200, salary.CategoryID, "manual category kept")
		assert.Equal(t, model.SourceManual, salary.CategorySource)
	})
}

func TestStore_AssignCategoriesOnlyUncategorized(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		txns := sampleTxns()
		_, err := s.UpsertTransactions(ctx, txns, ModeIgnore)
		require.NoError(t, err)
		require.NoError(t, s.SetCategory(ctx, txns[1].ID, 110, model.SourceManual))

		n, err := s.AssignCategories(ctx, []Assignment{
			{TransactionID: txns[0].ID, CategoryID: 100, Source: model.SourceRule, RuleID: "rule_0123456789ab"},
			{TransactionID: txns[1].ID, CategoryID: 100, Source: model.SourceRule, RuleID: "rule_0123456789ab"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		second, err := s.GetTransaction(ctx, txns[1].ID)
		require.NoError(t, err)
		assert.Equal(t, 110, second.CategoryID)

		uncategorized, err := s.UncategorizedTransactions(ctx, "checking")
		require.NoError(t, err)
		assert.Len(t, uncategorized, 2)
	})
}

func TestStore_UncategorizedAllAccounts(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		txns := append(sampleTxns(), txn("savings", 9, "12.00", model.KindIncome, 1, "INTERETS"))
		_, err := s.UpsertTransactions(ctx, txns, ModeIgnore)
		require.NoError(t, err)

		all, err := s.UncategorizedTransactions(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})
}

func TestStore_SetCategoryUnknown(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		err := s.SetCategory(ctx, "0123456789abcdef01234567", 100, model.SourceManual)
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = s.GetTransaction(ctx, "0123456789abcdef01234567")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStore_Balance(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		b, err := s.GetAccountBalance(ctx, "checking")
		require.NoError(t, err)
		assert.True(t, b.IsZero())

		require.NoError(t, s.SetAccountBalance(ctx, "checking", dec("2759.60")))
		b, err = s.GetAccountBalance(ctx, "checking")
		require.NoError(t, err)
		assert.Equal(t, "2759.60", b.StringFixed(2))

		require.NoError(t, s.SetAccountBalance(ctx, "checking", dec("-10")))
		b, err = s.GetAccountBalance(ctx, "checking")
		require.NoError(t, err)
		assert.Equal(t, "-10.00", b.StringFixed(2))
	})
}

func TestStore_DeleteAccount(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		txns := append(sampleTxns(), txn("savings", 9, "12.00", model.KindIncome, 1, "INTERETS"))
		_, err := s.UpsertTransactions(ctx, txns, ModeIgnore)
		require.NoError(t, err)
		require.NoError(t, s.SetAccountBalance(ctx, "checking", dec("100")))

		require.NoError(t, s.DeleteAccount(ctx, "checking"))

		got, err := s.ListTransactions(ctx, "checking")
		require.NoError(t, err)
		assert.Empty(t, got)
		b, err := s.GetAccountBalance(ctx, "checking")
		require.NoError(t, err)
		assert.True(t, b.IsZero())

		savings, err := s.ListTransactions(ctx, "savings")
		require.NoError(t, err)
		assert.Len(t, savings, 1)
	})
}
