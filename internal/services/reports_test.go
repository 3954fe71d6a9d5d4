package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestReportFilters(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	salary := f.category(t, "Salary", core.Income)

	jan := f.create(t, food.ID, "-12.5", "2024-01-10")
	feb := f.create(t, food.ID, "-30", "2024-02-10")
	pay := f.create(t, salary.ID, "1000", "2024-01-31")

	ids := func(entries []core.Entry) []int64 {
		out := make([]int64, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.ID)
		}
		return out
	}

	got, err := f.reports.Filter(f.ctx, Filter{Type: FilterDate, FromDate: "2024-01-01", ToDate: "2024-01-31"})
	require.NoError(t, err)
	assert.Equal(t, []int64{pay.ID, jan.ID}, ids(got))

	got, err = f.reports.Filter(f.ctx, Filter{Type: FilterDate, FromDate: "2024-01-01"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.reports.Filter(f.ctx, Filter{Type: FilterAmount, Amount: "-12.50"})
	require.NoError(t, err)
	assert.Equal(t, []int64{jan.ID}, ids(got))

	_, err = f.reports.Filter(f.ctx, Filter{Type: FilterAmount, Amount: "twelve"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	got, err = f.reports.Filter(f.ctx, Filter{Type: FilterCategory, CategoryID: strconv.FormatInt(food.ID, 10)})
	require.NoError(t, err)
	assert.Equal(t, []int64{feb.ID, jan.ID}, ids(got))

	got, err = f.reports.Filter(f.ctx, Filter{Type: FilterCategory, CategoryID: "food"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.reports.Filter(f.ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReportByIDsAndBreakdown(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	bills := f.category(t, "Bills", core.Expense)
	salary := f.category(t, "Salary", core.Income)

	a := f.create(t, food.ID, "-10", "2024-01-01")
	b := f.create(t, food.ID, "-5", "2024-01-02")
	c := f.create(t, bills.ID, "-40", "2024-01-03")
	d := f.create(t, salary.ID, "900", "2024-01-04")

	list := strconv.FormatInt(a.ID, 10) + "," + strconv.FormatInt(b.ID, 10) + ", " +
		strconv.FormatInt(c.ID, 10) + "," + strconv.FormatInt(d.ID, 10)
	entries, err := f.reports.ByIDs(f.ctx, list)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	expenses := CategoryBreakdown(FilterByType(entries, core.Expense))
	require.Len(t, expenses, 2)
	assert.Equal(t, "Bills", expenses[0].Name)
	assert.True(t, expenses[0].Amount.Equal(dec("-40")))
	assert.Equal(t, "Food", expenses[1].Name)
	assert.True(t, expenses[1].Amount.Equal(dec("-15")))

	totals := TotalsOf(entries)
	assert.True(t, totals.Income.Equal(dec("900")))
	assert.True(t, totals.Expense.Equal(dec("-55")))

	none, err := f.reports.ByIDs(f.ctx, "1,x")
	require.NoError(t, err)
	assert.Empty(t, none)
	none, err = f.reports.ByIDs(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOverview(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	salary := f.category(t, "Salary", core.Income)
	f.create(t, food.ID, "-20", "2024-01-01")
	f.create(t, salary.ID, "100", "2024-01-02")
	_, err := f.budgets.Set(f.ctx, core.Aggregate(), "500")
	require.NoError(t, err)

	ov, err := f.reports.Overview(f.ctx)
	require.NoError(t, err)
	assert.Len(t, ov.Entries, 2)
	assert.Len(t, ov.Categories, 2)
	require.Len(t, ov.Budgets, 1)
	assert.True(t, ov.Budgets[0].Current.Equal(dec("80")))
	assert.True(t, ov.Totals.Income.Equal(dec("100")))
	assert.True(t, ov.Totals.Expense.Equal(dec("-20")))

	totals, err := f.reports.Totals(f.ctx)
	require.NoError(t, err)
	assert.True(t, totals.Income.Equal(ov.Totals.Income))
	assert.True(t, totals.Expense.Equal(ov.Totals.Expense))
}
