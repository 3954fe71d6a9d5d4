package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"fintrack/internal/core"
)

const reportTitle = "Transaction Report"

// column widths in points; Letter is 612pt wide with 50pt margins.
var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 80, "L"},
	{"Category", 110, "L"},
	{"Description", 170, "L"},
	{"Amount", 80, "R"},
	{"Currency", 72, "C"},
}

// WritePDF renders entries as a paginated Letter-size table. The column
// header repeats on every page.
func WritePDF(w io.Writer, entries []core.Entry, currency string) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(reportTitle, true)
	pdf.SetMargins(50, 50, 50)
	pdf.SetAutoPageBreak(true, 50)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() == 1 {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.CellFormat(0, 30, reportTitle, "", 1, "C", false, 0, "")
		}
		pdf.SetFont("Helvetica", "B", 10)
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, 20, c.title, "B", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	})
	pdf.AddPage()

	for _, row := range Rows(entries, currency) {
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 20, tr(truncate(row[i], c.width)), "", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// truncate keeps a cell on one line at 10pt Helvetica, roughly 5pt a rune.
func truncate(s string, width float64) string {
	limit := int(width/5) - 1
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
