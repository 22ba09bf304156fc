package model

// Institution is a bank or broker profile: who exported the file and which
// parser reads it.
type Institution struct {
	Key    string
	Name   string
	Parser string
}

// Account belongs to exactly one institution profile.
type Account struct {
	ID          string
	Name        string
	Institution Institution
	Currency    string
}

// CategoryType classifies categories in the canonical table.
type CategoryType string

const (
	CategoryTypeIncome   CategoryType = "income"
	CategoryTypeExpense  CategoryType = "expense"
	CategoryTypeTransfer CategoryType = "transfer"
)

// Category is a row in the canonical category table. IDs are stable.
type Category struct {
	ID       int
	Key      string
	Name     string
	Type     CategoryType
	ParentID int // 0 = top-level
}
