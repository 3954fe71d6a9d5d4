package core

import "github.com/shopspring/decimal"

// CategoryTotal represents an amount aggregated by category.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Type       CategoryType
	Amount     decimal.Decimal
}

// Totals is the income/expense split shown on the home page.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func SumAmounts(txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// Entry is a transaction together with the category it belongs to.
type Entry struct {
	Transaction
	Category Category
}
