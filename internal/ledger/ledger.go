// Package ledger applies transaction deltas to running budget totals.
//
// Budgets are never recomputed on mutation. Every create, update or delete
// of a transaction moves current_budget by a delta, and that delta must land
// on both the transaction's category budget and the aggregate budget. Pair
// bundles the two so call sites cannot update one and forget the other.
package ledger

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Op mutates a single budget and reports whether it changed anything.
type Op func(b *core.Budget) bool

// AddExpense adds amount to the running total. A nil budget is a no-op.
func AddExpense(b *core.Budget, amount decimal.Decimal) bool {
	if b == nil {
		return false
	}
	b.Current = b.Current.Add(amount)
	return true
}

// ApplyUpdate moves the running total by newAmount - oldAmount.
func ApplyUpdate(b *core.Budget, oldAmount, newAmount decimal.Decimal) bool {
	if b == nil {
		return false
	}
	b.Current = b.Current.Add(newAmount.Sub(oldAmount))
	return true
}

// ApplyRemoval subtracts a removed transaction's amount.
func ApplyRemoval(b *core.Budget, removed decimal.Decimal) bool {
	if b == nil {
		return false
	}
	b.Current = b.Current.Sub(removed)
	return true
}

func Add(amount decimal.Decimal) Op {
	return func(b *core.Budget) bool { return AddExpense(b, amount) }
}

func Update(oldAmount, newAmount decimal.Decimal) Op {
	return func(b *core.Budget) bool { return ApplyUpdate(b, oldAmount, newAmount) }
}

func Remove(amount decimal.Decimal) Op {
	return func(b *core.Budget) bool { return ApplyRemoval(b, amount) }
}

// Pair holds the two budgets a transaction mutation touches. Either may be
// nil when no budget is configured for that scope.
type Pair struct {
	Category  *core.Budget
	Aggregate *core.Budget
}

// Apply runs op against both budgets and returns those that changed, in
// category-then-aggregate order.
func (p Pair) Apply(op Op) []*core.Budget {
	return p.ApplySplit(op, op)
}

// ApplySplit is Apply with a different op for each side. It is used when a
// transaction moves between categories: the category side sees a removal
// from the old budget or an addition to the new one while the aggregate
// still sees a single update delta.
func (p Pair) ApplySplit(categoryOp, aggregateOp Op) []*core.Budget {
	touched := make([]*core.Budget, 0, 2)
	if categoryOp(p.Category) {
		touched = append(touched, p.Category)
	}
	if aggregateOp(p.Aggregate) {
		touched = append(touched, p.Aggregate)
	}
	return touched
}
