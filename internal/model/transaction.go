package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a transaction. Amounts are always positive; the
// sign lives here.
type Kind string

const (
	KindIncome   Kind = "income"
	KindExpense  Kind = "expense"
	KindTransfer Kind = "transfer"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

// ParsedTransaction is the canonical, institution-agnostic row a parser emits.
type ParsedTransaction struct {
	Date           time.Time
	Description    string
	Amount         decimal.Decimal // always > 0
	Kind           Kind
	RawCategory    string // canonical category key, "" when the export has none
	Reference      string
	ValueDate      *time.Time
	AdditionalInfo string
	Reconciled     bool // bank-side pointage flag, when the export carries one
}

// SignedAmount returns the amount with the sign implied by Kind.
// Transfers contribute nothing.
func (t ParsedTransaction) SignedAmount() decimal.Decimal {
	return signed(t.Amount, t.Kind)
}

// ParseResult is what a parser returns for one file.
type ParseResult struct {
	Transactions []ParsedTransaction
	SkippedRows  int
}

// CategorySource records which layer assigned a transaction's category.
type CategorySource string

const (
	SourceNone     CategorySource = ""
	SourceRule     CategorySource = "rule"
	SourceBank     CategorySource = "bank"
	SourceTransfer CategorySource = "transfer"
	SourceManual   CategorySource = "manual"
	SourceAI       CategorySource = "ai"
)

// Transaction is a ledger row, owned by the import coordinator once created.
type Transaction struct {
	ID             string
	AccountID      string
	Source         string // parser key of the account's institution
	Date           time.Time
	ValueDate      *time.Time
	Description    string
	Amount         decimal.Decimal
	Kind           Kind
	RawCategory    string
	Reference      string
	AdditionalInfo string
	Reconciled     bool
	Position       int // per-account, per-date counter in file order
	CategoryID     int // 0 = uncategorized
	CategorySource CategorySource
	RuleID         string
	ImportID       string
	ImportedAt     time.Time
}

// SignedAmount returns the amount with the sign implied by Kind.
func (t Transaction) SignedAmount() decimal.Decimal {
	return signed(t.Amount, t.Kind)
}

// Categorized reports whether any layer has assigned a category.
func (t Transaction) Categorized() bool {
	return t.CategoryID != 0
}

func signed(amount decimal.Decimal, kind Kind) decimal.Decimal {
	switch kind {
	case KindIncome:
		return amount
	case KindExpense:
		return amount.Neg()
	default:
		return decimal.Zero
	}
}
