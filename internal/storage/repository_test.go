package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMigrationsApplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	v, dirty, err := SchemaVersion(DSN(path))
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), v)

	// Re-opening is a no-op migration.
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
}

func TestCategoryQueries(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()

	food, err := q.CreateCategory(ctx, "Food", core.Expense)
	require.NoError(t, err)
	assert.Equal(t, core.Expense, food.Type)

	_, err = q.CreateCategory(ctx, "Food", core.Income)
	assert.ErrorIs(t, err, core.ErrDuplicateName)

	byName, err := q.GetCategoryByName(ctx, "Food")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, food.ID, byName.ID)

	missing, err := q.GetCategoryByName(ctx, "Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, q.RenameCategory(ctx, food.ID, "Groceries"))
	got, err := q.GetCategory(ctx, food.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Name)

	_, err = q.GetCategory(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, q.DeleteCategory(ctx, 999), core.ErrNotFound)
}

func TestTransactionAndBudgetQueries(t *testing.T) {
	ctx := context.Background()
	q := newTestRepo(t).Queries()

	food, err := q.CreateCategory(ctx, "Food", core.Expense)
	require.NoError(t, err)

	tx, err := q.CreateTransaction(ctx, core.Transaction{
		CategoryID:  food.ID,
		Description: "lunch",
		Amount:      dec("-15.00"),
		Date:        core.NewDate(2024, 5, 1),
	})
	require.NoError(t, err)
	require.NotZero(t, tx.ID)

	got, err := q.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("-15")))
	assert.Equal(t, "2024-05-01", got.Date.String())
	assert.Equal(t, "lunch", got.Description)

	got.Amount = dec("-20")
	require.NoError(t, q.UpdateTransaction(ctx, got))

	sum, err := q.SumTransactions(ctx, core.PerCategory(food.ID))
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("-20")))

	none, err := q.GetBudget(ctx, core.Aggregate())
	require.NoError(t, err)
	assert.Nil(t, none)

	agg, err := q.CreateBudget(ctx, core.Budget{Scope: core.Aggregate(), Current: dec("-20"), Total: dec("500")})
	require.NoError(t, err)
	fetched, err := q.GetBudget(ctx, core.Aggregate())
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, agg.ID, fetched.ID)
	assert.True(t, fetched.Scope.IsAggregate())
	assert.True(t, fetched.Total.Equal(dec("500")))

	entries, err := q.ListEntries(ctx, []int64{tx.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Food", entries[0].Category.Name)
	assert.Equal(t, core.Expense, entries[0].Category.Type)

	require.NoError(t, q.DeleteTransaction(ctx, tx.ID))
	_, err = q.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(q *Queries) error {
		if _, err := q.CreateCategory(ctx, "Rent", core.Expense); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	cats, err := repo.Queries().ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestRescaleAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	q := repo.Queries()

	cat, err := q.CreateCategory(ctx, "Travel", core.Expense)
	require.NoError(t, err)
	tx, err := q.CreateTransaction(ctx, core.Transaction{CategoryID: cat.ID, Amount: dec("100"), Date: core.NewDate(2024, 1, 2)})
	require.NoError(t, err)
	_, err = q.CreateBudget(ctx, core.Budget{Scope: core.Aggregate(), Current: dec("100"), Total: dec("200")})
	require.NoError(t, err)

	var res RescaleResult
	require.NoError(t, repo.InTx(ctx, func(q *Queries) error {
		var err error
		res, err = q.RescaleAll(ctx, dec("0.9"))
		return err
	}))
	assert.Equal(t, RescaleResult{Transactions: 1, Budgets: 1}, res)

	got, err := q.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("90")), "amount %s", got.Amount)

	b, err := q.GetBudget(ctx, core.Aggregate())
	require.NoError(t, err)
	assert.True(t, b.Current.Equal(dec("90")))
	assert.True(t, b.Total.Equal(dec("180")))
}
