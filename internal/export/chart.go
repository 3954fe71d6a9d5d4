package export

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"

	"fintrack/internal/core"
)

// WritePieChart renders a PNG pie of per-category totals. Expense totals
// are negative in the ledger, so slices are sized by absolute value.
func WritePieChart(w io.Writer, title string, totals []core.CategoryTotal) error {
	var sum float64
	values := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		v := t.Amount.Abs().InexactFloat64()
		if v == 0 {
			continue
		}
		sum += v
		values = append(values, chart.Value{Value: v, Label: t.Name})
	}
	if len(values) == 0 {
		return core.NewValidationError("chart", "no transactions to chart")
	}
	for i := range values {
		values[i].Label = fmt.Sprintf("%s %.1f%%", values[i].Label, values[i].Value/sum*100)
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  600,
		Height: 600,
		Values: values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
