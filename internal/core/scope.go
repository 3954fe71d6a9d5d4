package core

import "strconv"

// AggregateKey is the category_id under which the aggregate budget is stored.
const AggregateKey int64 = 0

// BudgetScope selects what a budget tracks: one category, or every
// transaction regardless of category. The zero value is invalid.
type BudgetScope struct {
	aggregate  bool
	categoryID int64
}

func Aggregate() BudgetScope {
	return BudgetScope{aggregate: true}
}

func PerCategory(categoryID int64) BudgetScope {
	return BudgetScope{categoryID: categoryID}
}

// ScopeFromKey maps a stored category_id back to a scope.
func ScopeFromKey(key int64) BudgetScope {
	if key == AggregateKey {
		return Aggregate()
	}
	return PerCategory(key)
}

func (s BudgetScope) Key() int64 {
	if s.aggregate {
		return AggregateKey
	}
	return s.categoryID
}

func (s BudgetScope) IsAggregate() bool {
	return s.aggregate
}

func (s BudgetScope) CategoryID() (int64, bool) {
	return s.categoryID, !s.aggregate
}

func (s BudgetScope) Validate() error {
	if !s.aggregate && s.categoryID < 1 {
		return ErrInvalidScope
	}
	return nil
}

func (s BudgetScope) String() string {
	if s.aggregate {
		return "aggregate"
	}
	return "category:" + strconv.FormatInt(s.categoryID, 10)
}
