package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/currency"
)

func TestReconcileRescalesEverything(t *testing.T) {
	f := newFixture(t, "USD")
	f.rates.rates["USD/EUR"] = dec("0.90")
	food := f.category(t, "Food", core.Expense)
	tx := f.create(t, food.ID, "100.00", "2024-01-01")
	_, err := f.budgets.Set(f.ctx, core.Aggregate(), "200")
	require.NoError(t, err)

	res, err := f.reconciler.SetDefaultCurrency(f.ctx, "eur")
	require.NoError(t, err)
	assert.Equal(t, "USD", res.From)
	assert.Equal(t, "EUR", res.To)
	assert.Equal(t, 1, res.Transactions)
	assert.Equal(t, 1, res.Budgets)

	stored, err := f.tx.Get(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(dec("90")), "amount = %s", stored.Amount)

	agg := f.budget(t, core.Aggregate())
	assert.True(t, agg.Current.Equal(dec("90")))
	assert.True(t, agg.Total.Equal(dec("180")))

	assert.Equal(t, "EUR", f.setting.Get())
	reloaded := currency.NewSetting(f.setting.Path())
	require.NoError(t, reloaded.Load(nil))
	assert.Equal(t, "EUR", reloaded.Get())

	kinds := f.events.kinds()
	assert.Equal(t, amqp.EventCurrencyReconciled, kinds[len(kinds)-1])
	f.assertLedger(t)
}

func TestReconcileSameCodeChangesNothing(t *testing.T) {
	f := newFixture(t, "BGN")
	f.rates.rates["BGN/BGN"] = dec("2")
	food := f.category(t, "Food", core.Expense)
	tx := f.create(t, food.ID, "33.33", "2024-01-01")

	res, err := f.reconciler.SetDefaultCurrency(f.ctx, "BGN")
	require.NoError(t, err)
	assert.False(t, res.Rescaled())
	assert.True(t, res.Rate.Equal(dec("1")))

	stored, err := f.tx.Get(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(dec("33.33")))
	assert.Equal(t, []amqp.EventKind{amqp.EventTransactionCreated}, f.events.kinds())
}

func TestReconcileRoundTrip(t *testing.T) {
	f := newFixture(t, "USD")
	f.rates.rates["USD/EUR"] = dec("0.9")
	f.rates.rates["EUR/USD"] = dec("1").Div(dec("0.9"))
	food := f.category(t, "Food", core.Expense)
	tx := f.create(t, food.ID, "100", "2024-01-01")

	_, err := f.reconciler.SetDefaultCurrency(f.ctx, "EUR")
	require.NoError(t, err)
	_, err = f.reconciler.SetDefaultCurrency(f.ctx, "USD")
	require.NoError(t, err)

	stored, err := f.tx.Get(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Round(core.DisplayPlaces).Equal(dec("100")), "amount = %s", stored.Amount)
}

func TestReconcileRateFailureKeepsAmounts(t *testing.T) {
	f := newFixture(t, "USD")
	f.rates.err = &currency.ExternalServiceError{Endpoint: "pair/USD/EUR", Err: errors.New("timeout")}
	food := f.category(t, "Food", core.Expense)
	tx := f.create(t, food.ID, "100", "2024-01-01")

	_, err := f.reconciler.SetDefaultCurrency(f.ctx, "EUR")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrExternalService)

	// The code change is kept; the amounts are not rescaled.
	assert.Equal(t, "EUR", f.setting.Get())
	stored, err := f.tx.Get(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(dec("100")))
}

func TestReconcileRejectsUnknownCodes(t *testing.T) {
	f := newFixture(t, "BGN")

	_, err := f.reconciler.SetDefaultCurrency(f.ctx, "JPY")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.reconciler.SetDefaultCurrency(f.ctx, "EURO")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, "BGN", f.reconciler.Current())
}
