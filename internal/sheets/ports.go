package sheets

import (
	"context"
	"strconv"
	"time"
)

// EventRow is one ledger event as mirrored to a spreadsheet.
type EventRow struct {
	Timestamp     time.Time
	EventID       string
	Kind          string
	TransactionID int64
	Category      string
	Description   string
	Date          string
	Amount        string
	Currency      string
	Rate          string
}

// EventHeader names the columns written by Values.
var EventHeader = []string{
	"Timestamp", "Event", "Kind", "Transaction", "Category",
	"Description", "Date", "Amount", "Currency", "Rate",
}

// Values returns the row in EventHeader order.
func (r EventRow) Values() []string {
	tx := ""
	if r.TransactionID > 0 {
		tx = strconv.FormatInt(r.TransactionID, 10)
	}
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339), r.EventID, r.Kind, tx, r.Category,
		r.Description, r.Date, r.Amount, r.Currency, r.Rate,
	}
}

// Ports for outbound adapters.
type (
	// EventAppender appends ledger events to an append-only journal sheet.
	EventAppender interface {
		AppendEvent(ctx context.Context, row EventRow) (rowRef string, err error)
	}

	// ReportWriter replaces the content of a named sheet with a table.
	ReportWriter interface {
		ReplaceReport(ctx context.Context, sheet string, header []string, rows [][]string) error
	}

	LedgerMirror interface {
		EventAppender
		ReportWriter
	}
)
