package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "fintrack/internal/sheets"
)

// Store is an in-process LedgerMirror used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu      sync.Mutex
	events  []ports.EventRow
	reports map[string][][]string
}

var _ ports.LedgerMirror = (*Store)(nil)

func New() *Store {
	return &Store{reports: make(map[string][][]string)}
}

// AppendEvent stores the row and returns a synthetic row reference.
func (s *Store) AppendEvent(_ context.Context, row ports.EventRow) (string, error) {
	if row.EventID == "" {
		return "", errors.New("event id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, row)
	return fmt.Sprintf("mem:%d", len(s.events)), nil
}

func (s *Store) ReplaceReport(_ context.Context, sheet string, header []string, rows [][]string) error {
	if sheet == "" {
		return errors.New("report sheet name is required")
	}
	table := make([][]string, 0, len(rows)+1)
	table = append(table, append([]string(nil), header...))
	for _, r := range rows {
		table = append(table, append([]string(nil), r...))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[sheet] = table
	return nil
}

// Events returns a copy of the appended rows.
func (s *Store) Events() []ports.EventRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.EventRow(nil), s.events...)
}

// Report returns the last table written to sheet, header first.
func (s *Store) Report(sheet string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.reports[sheet]
	return t, ok
}
