package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

const xlsxSheet = "Transactions"

// WriteXLSX writes entries to a single-sheet workbook with numeric amounts.
func WriteXLSX(w io.Writer, entries []core.Entry, currency string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	// built-in format 2 is "0.00"
	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}
	if err := f.SetColStyle(xlsxSheet, "D", style); err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.Date.String(),
			e.Category.Name,
			e.Description,
			e.Amount.Round(core.DisplayPlaces).InexactFloat64(),
			currency,
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
