package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// RateSource is the strict side of the currency client used by
// reconciliation: a failed fetch is an error, never a silent rate of 1.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
	IsKnown(ctx context.Context, code string) bool
}

// ReconcileResult describes a completed default-currency change.
type ReconcileResult struct {
	From         string
	To           string
	Rate         decimal.Decimal
	Transactions int
	Budgets      int
}

// Rescaled reports whether stored amounts were touched.
func (r ReconcileResult) Rescaled() bool {
	return r.From != r.To
}

type Reconciler struct {
	repo    *storage.SQLiteRepository
	rates   RateSource
	setting *currency.Setting
	gate    *Gate
	events  EventPublisher
	logger  *log.StructuredLogger
}

func NewReconciler(repo *storage.SQLiteRepository, rates RateSource, setting *currency.Setting, gate *Gate, events EventPublisher) *Reconciler {
	return &Reconciler{
		repo:    repo,
		rates:   rates,
		setting: setting,
		gate:    gate,
		events:  events,
		logger:  log.NewStructuredLogger(log.Default().WithComponent(log.ComponentCurrency)),
	}
}

// SetDefaultCurrency switches the default currency and rescales every
// stored amount by the from→to rate in a single SQL transaction.
//
// The new code is persisted before the rate is fetched. If the fetch fails
// the code stays changed, nothing is rescaled and the error is returned.
// If the rescale itself fails the previous code is restored.
func (r *Reconciler) SetDefaultCurrency(ctx context.Context, code string) (ReconcileResult, error) {
	code = currency.NormalizeCode(code)
	if currency.ValidCode(code) != nil {
		return ReconcileResult{}, core.NewValidationError("currency", "must be a 3-letter code")
	}
	if !r.rates.IsKnown(ctx, code) {
		return ReconcileResult{}, core.NewValidationError("currency", fmt.Sprintf("%s is not a supported currency", code))
	}

	var res ReconcileResult
	err := r.gate.Exclusive(func() error {
		from := r.setting.Get()
		res = ReconcileResult{From: from, To: code, Rate: decimal.NewFromInt(1)}
		if from == code {
			return nil
		}

		if err := r.setting.Set(code); err != nil {
			return fmt.Errorf("persist default currency: %w", err)
		}

		rate, err := r.rates.Rate(ctx, from, code)
		if err != nil {
			return fmt.Errorf("fetch %s/%s rate, amounts not rescaled: %w", from, code, err)
		}
		res.Rate = rate

		var counts storage.RescaleResult
		err = r.repo.InTx(ctx, func(q *storage.Queries) error {
			counts, err = q.RescaleAll(ctx, rate)
			return err
		})
		if err != nil {
			if rerr := r.setting.Set(from); rerr != nil {
				slog.ErrorContext(ctx, "Failed to restore default currency after rescale failure",
					"currency", from, "error", rerr)
			}
			return fmt.Errorf("rescale amounts: %w", err)
		}
		res.Transactions = counts.Transactions
		res.Budgets = counts.Budgets
		return nil
	})
	if err != nil {
		return res, err
	}

	if res.Rescaled() {
		r.logger.LogReconciliation(ctx, res.From, res.To, res.Rate.String(), res.Transactions, res.Budgets)
		ev := amqp.NewLedgerEvent(amqp.EventCurrencyReconciled, res.To)
		ev.PrevCurrency = res.From
		ev.Rate = res.Rate.String()
		publish(ctx, r.events, ev)
	}
	return res, nil
}

// Current returns the active default currency.
func (r *Reconciler) Current() string {
	return r.setting.Get()
}
