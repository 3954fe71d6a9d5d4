package services

import (
	"context"
	"log/slog"

	"fintrack/internal/amqp"
)

// EventPublisher receives ledger events after their SQL transaction commits.
// *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// publish never fails the caller: the ledger write has already committed.
func publish(ctx context.Context, p EventPublisher, event *amqp.LedgerEvent) {
	if p == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger event", "kind", event.Kind)
		return
	}
	if err := p.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind,
			"event_id", event.ID,
			"error", err)
	}
}
