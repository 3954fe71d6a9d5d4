package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// CategoryReader resolves a category id to its current name.
// *storage.Queries satisfies it.
type CategoryReader interface {
	GetCategory(ctx context.Context, id int64) (core.Category, error)
}

// Consumer delivers ledger events until ctx is cancelled.
// *amqp.Client satisfies it.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// MirrorWorker copies committed ledger events to a spreadsheet journal.
type MirrorWorker struct {
	categories CategoryReader
	mirror     sheets.EventAppender
}

func NewMirrorWorker(categories CategoryReader, mirror sheets.EventAppender) *MirrorWorker {
	return &MirrorWorker{categories: categories, mirror: mirror}
}

// Handle appends one journal row for ev. A returned error requeues the
// message.
func (w *MirrorWorker) Handle(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Mirroring ledger event",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"transaction_id", ev.TransactionID)

	row := sheets.EventRow{
		Timestamp:     ev.Timestamp,
		EventID:       ev.ID,
		Kind:          string(ev.Kind),
		TransactionID: ev.TransactionID,
		Category:      ev.Category,
		Description:   ev.Description,
		Date:          ev.Date,
		Amount:        ev.Amount,
		Currency:      ev.Currency,
		Rate:          ev.Rate,
	}
	if ev.Kind == amqp.EventCurrencyReconciled {
		row.Description = fmt.Sprintf("%s -> %s", ev.PrevCurrency, ev.Currency)
	}
	if row.Category == "" && ev.CategoryID > 0 {
		name, err := w.categoryName(ctx, ev.CategoryID)
		if err != nil {
			return err
		}
		row.Category = name
	}

	ref, err := w.mirror.AppendEvent(ctx, row)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored ledger event",
		"event_id", ev.ID,
		"sheets_ref", ref)
	return nil
}

// categoryName returns "" for a category deleted since the event was
// published.
func (w *MirrorWorker) categoryName(ctx context.Context, id int64) (string, error) {
	if w.categories == nil {
		return "", nil
	}
	c, err := w.categories.GetCategory(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get category %d: %w", id, err)
	}
	return c.Name, nil
}

// Run consumes events until ctx is done, restarting the consumer with
// backoff when the channel drops.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	backoff := time.Second
	for {
		err := consumer.ConsumeLedgerEvents(ctx, w.Handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.ErrorContext(ctx, "Ledger event consumer stopped, restarting",
			"error", err,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
