package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/id"
	"github.com/cleared-dev/ledgerkit/internal/model"
)

// ValidationError describes a single ledger invariant violation.
type ValidationError struct {
	Rule          string
	TransactionID string
	Description   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.TransactionID, e.Description)
}

// CategoryChecker tests whether a category ID exists in the category table.
type CategoryChecker interface {
	Exists(id int) bool
}

// ValidateTransactions checks rows before they are written. cats may be nil
// to skip the category check.
func ValidateTransactions(txns []model.Transaction, cats CategoryChecker) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(txns))
	hundred := decimal.NewFromInt(100)

	for _, t := range txns {
		if t.AccountID == "" {
			errs = append(errs, ValidationError{"account", t.ID, "missing account ID"})
		}

		if !t.Amount.IsPositive() {
			errs = append(errs, ValidationError{"amount", t.ID, fmt.Sprintf("amount %s must be positive", t.Amount)})
		} else if !t.Amount.Mul(hundred).Equal(t.Amount.Mul(hundred).Floor()) {
			errs = append(errs, ValidationError{"amount", t.ID, fmt.Sprintf("amount %s has more than 2 decimal places", t.Amount)})
		}

		if !t.Kind.Valid() {
			errs = append(errs, ValidationError{"kind", t.ID, fmt.Sprintf("unknown kind %q", t.Kind)})
		}

		if t.Position < 1 {
			errs = append(errs, ValidationError{"position", t.ID, fmt.Sprintf("position %d must be >= 1", t.Position)})
		}

		if want := id.TransactionID(t.AccountID, t.Date, t.Amount, t.Kind, t.Position); t.ID != want {
			errs = append(errs, ValidationError{"identity", t.ID, fmt.Sprintf("expected %s for %s", want, id.TransactionKey(t.AccountID, t.Date, t.Amount, t.Kind, t.Position))})
		}

		if seen[t.ID] {
			errs = append(errs, ValidationError{"identity", t.ID, "duplicate transaction ID in batch"})
		}
		seen[t.ID] = true

		if cats != nil && t.CategoryID != 0 && !cats.Exists(t.CategoryID) {
			errs = append(errs, ValidationError{"category", t.ID, fmt.Sprintf("unknown category %d", t.CategoryID)})
		}
	}
	return errs
}

// validationFailed folds violations into one error, or nil.
func validationFailed(verrs []ValidationError) error {
	if len(verrs) == 0 {
		return nil
	}
	msgs := make([]string, len(verrs))
	for i, ve := range verrs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
