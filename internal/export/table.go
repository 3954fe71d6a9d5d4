// Package export renders report rows as CSV, PDF, XLSX and chart images.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"fintrack/internal/core"
)

// Header is the column order shared by every tabular export.
var Header = []string{"date", "category", "description", "amount", "currency"}

// Rows formats entries in Header order with two-decimal amounts.
func Rows(entries []core.Entry, currency string) [][]string {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, []string{
			e.Date.String(),
			e.Category.Name,
			e.Description,
			core.FormatAmount(e.Amount),
			currency,
		})
	}
	return out
}

func WriteCSV(w io.Writer, entries []core.Entry, currency string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(Rows(entries, currency)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
