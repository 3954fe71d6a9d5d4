package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventKind names a committed ledger change.
type EventKind string

const (
	EventTransactionCreated EventKind = "transaction.created"
	EventTransactionUpdated EventKind = "transaction.updated"
	EventTransactionDeleted EventKind = "transaction.deleted"
	EventCategoryDeleted    EventKind = "category.deleted"
	EventCurrencyReconciled EventKind = "currency.reconciled"
)

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventTransactionCreated, EventTransactionUpdated, EventTransactionDeleted,
		EventCategoryDeleted, EventCurrencyReconciled:
		return true
	}
	return false
}

// LedgerEvent is published after a ledger change has been committed.
// Amounts are decimal strings in the currency named by Currency.
type LedgerEvent struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	CategoryID    int64     `json:"category_id,omitempty"`
	Category      string    `json:"category,omitempty"`
	Description   string    `json:"description,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Date          string    `json:"date,omitempty"`
	Currency      string    `json:"currency"`
	PrevCurrency  string    `json:"prev_currency,omitempty"`
	Rate          string    `json:"rate,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh id.
func NewLedgerEvent(kind EventKind, currency string) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Currency:  currency,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event and rejects unknown kinds.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
