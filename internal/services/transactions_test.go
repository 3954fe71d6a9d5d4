package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

func TestFoodBudgetTracksTransactions(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)

	first := f.create(t, food.ID, "-15.00", "2024-03-01")
	f.create(t, food.ID, "-20.00", "2024-03-02")

	b, err := f.budgets.Set(f.ctx, core.PerCategory(food.ID), "100")
	require.NoError(t, err)
	assert.True(t, b.Current.Equal(dec("-35")), "current = %s", b.Current)

	require.NoError(t, f.tx.Delete(f.ctx, first.ID))
	assert.True(t, f.budget(t, core.PerCategory(food.ID)).Current.Equal(dec("-20")))
	f.assertLedger(t)
}

func TestCreateUpdatesBothBudgets(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	salary := f.category(t, "Salary", core.Income)

	_, err := f.budgets.Set(f.ctx, core.PerCategory(food.ID), "300")
	require.NoError(t, err)
	_, err = f.budgets.Set(f.ctx, core.Aggregate(), "1000")
	require.NoError(t, err)

	f.create(t, food.ID, "12.50", "2024-03-01")
	f.create(t, salary.ID, "500", "2024-03-01")

	assert.True(t, f.budget(t, core.PerCategory(food.ID)).Current.Equal(dec("12.5")))
	assert.True(t, f.budget(t, core.Aggregate()).Current.Equal(dec("512.5")))
	assert.Equal(t, []amqp.EventKind{amqp.EventTransactionCreated, amqp.EventTransactionCreated}, f.events.kinds())
	f.assertLedger(t)
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	_, err := f.budgets.Set(f.ctx, core.Aggregate(), "10")
	require.NoError(t, err)

	cases := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"missing category", TransactionInput{Amount: "5"}, core.ErrValidation},
		{"empty amount", TransactionInput{CategoryID: food.ID, Amount: "  "}, core.ErrValidation},
		{"non-numeric amount", TransactionInput{CategoryID: food.ID, Amount: "abc"}, core.ErrInvalidAmount},
		{"huge exponent", TransactionInput{CategoryID: food.ID, Amount: "1e100000"}, core.ErrInvalidAmount},
		{"tiny exponent", TransactionInput{CategoryID: food.ID, Amount: "1e-100000"}, core.ErrInvalidAmount},
		{"too many digits", TransactionInput{CategoryID: food.ID, Amount: "12345678901234567"}, core.ErrInvalidAmount},
		{"bad date", TransactionInput{CategoryID: food.ID, Amount: "5", Date: "03/01/2024"}, core.ErrValidation},
		{"unknown category", TransactionInput{CategoryID: food.ID + 100, Amount: "5"}, core.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tx.Create(f.ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	entries, err := f.tx.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, f.budget(t, core.Aggregate()).Current.IsZero())
	assert.Empty(t, f.events.kinds())
}

func TestCreateConvertsToDefaultCurrency(t *testing.T) {
	f := newFixture(t, "EUR")
	f.rates.rates["USD/EUR"] = dec("0.9")
	food := f.category(t, "Food", core.Expense)

	tx, err := f.tx.Create(f.ctx, TransactionInput{CategoryID: food.ID, Amount: "100", Currency: "usd", Date: "2024-01-01"})
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(dec("90")), "amount = %s", tx.Amount)

	same, err := f.tx.Create(f.ctx, TransactionInput{CategoryID: food.ID, Amount: "7", Currency: "EUR"})
	require.NoError(t, err)
	assert.True(t, same.Amount.Equal(dec("7")))
	assert.Equal(t, core.Today().String(), same.Date.String())
}

func TestUpdateAppliesDelta(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	_, err := f.budgets.Set(f.ctx, core.PerCategory(food.ID), "100")
	require.NoError(t, err)
	_, err = f.budgets.Set(f.ctx, core.Aggregate(), "100")
	require.NoError(t, err)

	tx := f.create(t, food.ID, "10", "2024-01-01")
	updated, err := f.tx.Update(f.ctx, tx.ID, TransactionInput{
		CategoryID: food.ID, Amount: "25", Description: "  lunch ", Date: "2024-01-02",
	})
	require.NoError(t, err)
	assert.Equal(t, "lunch", updated.Description)

	assert.True(t, f.budget(t, core.PerCategory(food.ID)).Current.Equal(dec("25")))
	assert.True(t, f.budget(t, core.Aggregate()).Current.Equal(dec("25")))

	stored, err := f.tx.Get(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", stored.Date.String())
	f.assertLedger(t)
}

func TestUpdateMovesBetweenCategories(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	travel := f.category(t, "Travel", core.Expense)
	for _, scope := range []core.BudgetScope{core.PerCategory(food.ID), core.PerCategory(travel.ID), core.Aggregate()} {
		_, err := f.budgets.Set(f.ctx, scope, "500")
		require.NoError(t, err)
	}

	f.create(t, food.ID, "5", "2024-01-01")
	tx := f.create(t, food.ID, "40", "2024-01-01")
	_, err := f.tx.Update(f.ctx, tx.ID, TransactionInput{CategoryID: travel.ID, Amount: "60", Date: "2024-01-01"})
	require.NoError(t, err)

	assert.True(t, f.budget(t, core.PerCategory(food.ID)).Current.Equal(dec("5")))
	assert.True(t, f.budget(t, core.PerCategory(travel.ID)).Current.Equal(dec("60")))
	assert.True(t, f.budget(t, core.Aggregate()).Current.Equal(dec("65")))
	f.assertLedger(t)
}

func TestUpdateAndDeleteMissingTransaction(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)

	_, err := f.tx.Update(f.ctx, 42, TransactionInput{CategoryID: food.ID, Amount: "1"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = f.tx.Delete(f.ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, "transaction 42 not found", core.UserMessage(err))
}

func TestMissingCategoryBudgetOnlyMovesAggregate(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	_, err := f.budgets.Set(f.ctx, core.Aggregate(), "100")
	require.NoError(t, err)

	tx := f.create(t, food.ID, "30", "2024-01-01")
	assert.True(t, f.budget(t, core.Aggregate()).Current.Equal(dec("30")))

	b, err := f.budgets.Get(f.ctx, core.PerCategory(food.ID))
	require.NoError(t, err)
	assert.Nil(t, b)

	require.NoError(t, f.tx.Delete(f.ctx, tx.ID))
	assert.True(t, f.budget(t, core.Aggregate()).Current.IsZero())
}

func TestLedgerInvariantHoldsOverSequence(t *testing.T) {
	f := newFixture(t, "BGN")
	a := f.category(t, "Groceries", core.Expense)
	b := f.category(t, "Wages", core.Income)
	for _, scope := range []core.BudgetScope{core.PerCategory(a.ID), core.PerCategory(b.ID), core.Aggregate()} {
		_, err := f.budgets.Set(f.ctx, scope, "1000")
		require.NoError(t, err)
	}

	var ids []int64
	amounts := []string{"-3.10", "12", "0.01", "-99.99", "45.5", "7", "-0.5", "250"}
	for i, amt := range amounts {
		cat := a.ID
		if i%3 == 0 {
			cat = b.ID
		}
		ids = append(ids, f.create(t, cat, amt, "2024-02-01").ID)
		f.assertLedger(t)
	}

	for i, id := range ids {
		switch i % 3 {
		case 0:
			require.NoError(t, f.tx.Delete(f.ctx, id))
		case 1:
			_, err := f.tx.Update(f.ctx, id, TransactionInput{CategoryID: b.ID, Amount: "1.11", Date: "2024-02-02"})
			require.NoError(t, err)
		default:
			_, err := f.tx.Update(f.ctx, id, TransactionInput{CategoryID: a.ID, Amount: "-8", Date: "2024-02-03"})
			require.NoError(t, err)
		}
		f.assertLedger(t)
	}
}

func TestFailedRowWriteLeavesBudgetsUntouched(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	for _, scope := range []core.BudgetScope{core.PerCategory(food.ID), core.Aggregate()} {
		_, err := f.budgets.Set(f.ctx, scope, "100")
		require.NoError(t, err)
	}
	kept := f.create(t, food.ID, "10", "2024-01-01")
	locked, err := f.tx.Create(f.ctx, TransactionInput{CategoryID: food.ID, Amount: "5", Description: "locked", Date: "2024-01-01"})
	require.NoError(t, err)
	eventsBefore := len(f.events.kinds())

	// The row write runs after both budgets are saved in the same SQL transaction.
	f.exec(t, `CREATE TRIGGER reject_insert BEFORE INSERT ON transactions
		WHEN NEW.description = 'reject' BEGIN SELECT RAISE(ABORT, 'insert rejected'); END`)
	f.exec(t, `CREATE TRIGGER reject_update BEFORE UPDATE ON transactions
		WHEN NEW.description = 'reject' BEGIN SELECT RAISE(ABORT, 'update rejected'); END`)
	f.exec(t, `CREATE TRIGGER reject_delete BEFORE DELETE ON transactions
		WHEN OLD.description = 'locked' BEGIN SELECT RAISE(ABORT, 'delete rejected'); END`)

	_, err = f.tx.Create(f.ctx, TransactionInput{CategoryID: food.ID, Amount: "40", Description: "reject", Date: "2024-01-02"})
	require.Error(t, err)

	_, err = f.tx.Update(f.ctx, kept.ID, TransactionInput{CategoryID: food.ID, Amount: "70", Description: "reject", Date: "2024-01-02"})
	require.Error(t, err)

	require.Error(t, f.tx.Delete(f.ctx, locked.ID))

	assert.True(t, f.budget(t, core.PerCategory(food.ID)).Current.Equal(dec("15")))
	assert.True(t, f.budget(t, core.Aggregate()).Current.Equal(dec("15")))

	stored, err := f.tx.Get(f.ctx, kept.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(dec("10")))
	entries, err := f.tx.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	assert.Len(t, f.events.kinds(), eventsBefore)
	f.assertLedger(t)
}
