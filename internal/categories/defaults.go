package categories

import "github.com/cleared-dev/ledgerkit/internal/model"

// Canonical category keys. Parsers translate institution vocabulary to these.
const (
	Groceries     = "groceries"
	Dining        = "dining"
	Transport     = "transport"
	Fuel          = "fuel"
	Housing       = "housing"
	Rent          = "rent"
	Utilities     = "utilities"
	Telecom       = "telecom"
	Health        = "health"
	Insurance     = "insurance"
	Shopping      = "shopping"
	Leisure       = "leisure"
	Travel        = "travel"
	Subscriptions = "subscriptions"
	Education     = "education"
	Taxes         = "taxes"
	BankFees      = "bank_fees"
	Cash          = "cash"
	Salary        = "salary"
	RentalIncome  = "rental_income"
	Refunds       = "refunds"
	OtherIncome   = "other_income"
	Investment    = "investment"
	Dividends     = "dividends"
	Transfer      = "transfer"
	Other         = "other"
)

// DefaultTable returns the canonical category table. IDs never change once
// published; new categories get new IDs.
func DefaultTable() []model.Category {
	return []model.Category{
		{ID: 100, Key: Groceries, Name: "Groceries", Type: model.CategoryTypeExpense},
		{ID: 110, Key: Dining, Name: "Restaurants & Bars", Type: model.CategoryTypeExpense},
		{ID: 120, Key: Transport, Name: "Transport", Type: model.CategoryTypeExpense},
		{ID: 121, Key: Fuel, Name: "Fuel", Type: model.CategoryTypeExpense, ParentID: 120},
		{ID: 130, Key: Housing, Name: "Housing", Type: model.CategoryTypeExpense},
		{ID: 131, Key: Rent, Name: "Rent", Type: model.CategoryTypeExpense, ParentID: 130},
		{ID: 132, Key: Utilities, Name: "Utilities", Type: model.CategoryTypeExpense, ParentID: 130},
		{ID: 133, Key: Telecom, Name: "Phone & Internet", Type: model.CategoryTypeExpense, ParentID: 130},
		{ID: 140, Key: Health, Name: "Health", Type: model.CategoryTypeExpense},
		{ID: 150, Key: Insurance, Name: "Insurance", Type: model.CategoryTypeExpense},
		{ID: 160, Key: Shopping, Name: "Shopping", Type: model.CategoryTypeExpense},
		{ID: 170, Key: Leisure, Name: "Leisure", Type: model.CategoryTypeExpense},
		{ID: 171, Key: Travel, Name: "Travel", Type: model.CategoryTypeExpense, ParentID: 170},
		{ID: 172, Key: Subscriptions, Name: "Subscriptions", Type: model.CategoryTypeExpense, ParentID: 170},
		{ID: 180, Key: Education, Name: "Education", Type: model.CategoryTypeExpense},
		{ID: 190, Key: Taxes, Name: "Taxes", Type: model.CategoryTypeExpense},
		{ID: 191, Key: BankFees, Name: "Bank Fees", Type: model.CategoryTypeExpense},
		{ID: 192, Key: Cash, Name: "Cash Withdrawals", Type: model.CategoryTypeExpense},
		{ID: 200, Key: Salary, Name: "Salary", Type: model.CategoryTypeIncome},
		{ID: 210, Key: RentalIncome, Name: "Rental Income", Type: model.CategoryTypeIncome},
		{ID: 220, Key: Refunds, Name: "Refunds", Type: model.CategoryTypeIncome},
		{ID: 230, Key: Dividends, Name: "Dividends", Type: model.CategoryTypeIncome},
		{ID: 290, Key: OtherIncome, Name: "Other Income", Type: model.CategoryTypeIncome},
		{ID: 300, Key: Investment, Name: "Investments", Type: model.CategoryTypeTransfer},
		{ID: 400, Key: Transfer, Name: "Internal Transfers", Type: model.CategoryTypeTransfer},
		{ID: 900, Key: Other, Name: "Other", Type: model.CategoryTypeExpense},
	}
}
