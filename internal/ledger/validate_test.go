package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/ledgerkit/internal/categories"
	"github.com/cleared-dev/ledgerkit/internal/model"
)

func TestValidateTransactions_Valid(t *testing.T) {
	txns := []model.Transaction{
		txn("checking", 3, "45.20", model.KindExpense, 1, "a"),
		txn("checking", 3, "45.20", model.KindExpense, 2, "b"),
	}
	assert.Empty(t, ValidateTransactions(txns, categories.Default()))
}

func TestValidateTransactions_Violations(t *testing.T) {
	badID := txn("checking", 3, "45.20", model.KindExpense, 1, "a")
	badID.ID = "deadbeef"

	negative := txn("checking", 3, "45.20", model.KindExpense, 1, "a")
	negative.Amount = dec("-45.20")

	precise := txn("checking", 3, "45.20", model.KindExpense, 1, "a")
	precise.Amount = dec("45.205")

	badKind := txn("checking", 3, "45.20", model.KindExpense, 1, "a")
	badKind.Kind = "debit"

	unknownCat := txn("checking", 3, "45.20", model.KindExpense, 1, "a")
	unknownCat.CategoryID = 4242

	tests := []struct {
		name string
		txns []model.Transaction
		rule string
	}{
		{"identity mismatch", []model.Transaction{badID}, "identity"},
		{"non-positive amount", []model.Transaction{negative}, "amount"},
		{"three decimals", []model.Transaction{precise}, "amount"},
		{"unknown kind", []model.Transaction{badKind}, "kind"},
		{"unknown category", []model.Transaction{unknownCat}, "category"},
		{"duplicate", []model.Transaction{
			txn("checking", 3, "1.00", model.KindExpense, 1, "a"),
			txn("checking", 3, "1.00", model.KindExpense, 1, "b"),
		}, "identity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTransactions(tt.txns, categories.Default())
			if assert.NotEmpty(t, errs) {
				rules := make([]string, len(errs))
				for i, e := range errs {
					rules[i] = e.Rule
				}
				assert.Contains(t, rules, tt.rule)
			}
		})
	}
}

func TestValidateTransactions_NilCategories(t *testing.T) {
	tx := txn("checking", 3, "45.20", model.KindExpense, 1, "a")
	tx.CategoryID = 4242
	assert.Empty(t, ValidateTransactions([]model.Transaction{tx}, nil))
}
