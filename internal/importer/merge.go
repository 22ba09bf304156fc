package importer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledgerkit/internal/model"
)

// mergeDebitCredit folds a debit/credit column pair into an amount and kind:
// amount = credit OR |debit|, income when credit is non-zero. Both sides are
// rounded to the cent first. ok is false when both sides are zero, and the
// row must be skipped.
func mergeDebitCredit(debit, credit decimal.Decimal) (amount decimal.Decimal, kind model.Kind, ok bool) {
	debit, credit = debit.Round(2), credit.Round(2)
	switch {
	case !credit.IsZero():
		return credit.Abs(), model.KindIncome, true
	case !debit.IsZero():
		return debit.Abs(), model.KindExpense, true
	default:
		return decimal.Zero, "", false
	}
}

// signedToKind splits a single signed amount column, rounded to the cent.
func signedToKind(v decimal.Decimal) (amount decimal.Decimal, kind model.Kind, ok bool) {
	v = v.Round(2)
	switch v.Sign() {
	case 1:
		return v, model.KindIncome, true
	case -1:
		return v.Abs(), model.KindExpense, true
	default:
		return decimal.Zero, "", false
	}
}

var accentFolder = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"à", "a", "â", "a", "ä", "a",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c", "’", "'",
)

// fold lower-cases, strips French accents and collapses whitespace so
// header tokens and vocabulary match regardless of export quirks.
func fold(s string) string {
	return strings.Join(strings.Fields(accentFolder.Replace(strings.ToLower(s))), " ")
}

// rowHas reports whether any cell of row equals one of the folded tokens.
func rowHas(row []string, tokens ...string) bool {
	for _, cell := range row {
		f := fold(cell)
		for _, t := range tokens {
			if f == t {
				return true
			}
		}
	}
	return false
}

// joinInfo joins the non-empty parts with " | ".
func joinInfo(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}
