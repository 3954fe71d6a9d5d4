package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// ImportColumns is the required header of an import file, in any order.
var ImportColumns = []string{"date", "category", "description", "amount", "currency"}

// Table is a parsed import file: a header and its data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable parses an uploaded file, choosing the reader by extension.
func ReadTable(filename string, r io.Reader) (Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	case "":
		return Table{}, core.NewValidationError("file", "no file selected")
	default:
		return Table{}, core.NewValidationError("file", "must be a .csv or .xlsx file")
	}
}

func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, core.NewValidationError("file", fmt.Sprintf("unreadable CSV: %v", err))
	}
	return newTable(records)
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, core.NewValidationError("file", fmt.Sprintf("unreadable workbook: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, core.NewValidationError("file", "is empty")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return newTable(records)
}

func newTable(records [][]string) (Table, error) {
	if len(records) < 2 {
		return Table{}, core.NewValidationError("file", "is empty")
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return Table{Header: header, Rows: records[1:]}, nil
}

// columns maps each required column to its index in the header.
func (t Table) columns() (map[string]int, error) {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		idx[h] = i
	}
	for _, c := range ImportColumns {
		if _, ok := idx[c]; !ok {
			return nil, core.NewValidationError("file",
				fmt.Sprintf("invalid format, expected columns: %s", strings.Join(ImportColumns, ", ")))
		}
	}
	return idx, nil
}

// RowError is a diagnostic for one rejected row. Row is 1-based over the
// data rows.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s on row %d", core.UserMessage(e.Err), e.Row)
}

func (e RowError) Unwrap() error {
	return e.Err
}

type ImportResult struct {
	Total    int
	Imported int
	Errors   []RowError
}

// ImportOptions tunes an import run.
type ImportOptions struct {
	// Progress is called after each row.
	Progress func(done, total int)
	// Strict stops at the first rejected row. Rows already imported stay.
	Strict bool
}

// Importer feeds rows through the same create path as manual entry, one
// SQL transaction per row, so a bad row never blocks the good ones.
type Importer struct {
	repo         *storage.SQLiteRepository
	transactions *TransactionService
	logger       *log.Logger
}

func NewImporter(repo *storage.SQLiteRepository, transactions *TransactionService) *Importer {
	return &Importer{
		repo:         repo,
		transactions: transactions,
		logger:       log.Default().WithComponent(log.ComponentImport),
	}
}

// Import processes every row of t. Only a malformed header fails the whole
// file; row problems are collected in the result.
func (im *Importer) Import(ctx context.Context, t Table, opts ImportOptions) (ImportResult, error) {
	cols, err := t.columns()
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Total: len(t.Rows)}
	for i, record := range t.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := i + 1
		if err := im.importRow(ctx, cols, record); err != nil {
			res.Errors = append(res.Errors, RowError{Row: row, Err: err})
			im.logger.WarnContext(ctx, "Import row rejected", log.FieldRow, row, log.FieldError, err)
			if opts.Strict {
				break
			}
		} else {
			res.Imported++
		}
		if opts.Progress != nil {
			opts.Progress(row, res.Total)
		}
	}

	im.logger.InfoContext(ctx, "Import finished",
		log.FieldOperation, log.OpImport,
		"rows", res.Total,
		"imported", res.Imported,
		"rejected", len(res.Errors))
	return res, nil
}

func (im *Importer) importRow(ctx context.Context, cols map[string]int, record []string) error {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name := field("category")
	if name == "" {
		return core.NewUserError("Invalid or missing category", core.NewValidationError("category", "is required"))
	}
	raw := field("amount")
	if raw == "" {
		return core.NewUserError("Invalid amount", core.NewValidationError("amount", "is required"))
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		return core.NewUserError(fmt.Sprintf("Amount '%s' is not a valid number", raw), err)
	}
	if !amount.IsPositive() {
		return core.NewUserError(fmt.Sprintf("Invalid amount '%s'", raw),
			fmt.Errorf("%w: must be greater than 0", core.ErrInvalidAmount))
	}
	date := field("date")
	if date == "" {
		return core.NewUserError("Invalid or missing date", core.NewValidationError("date", "is required"))
	}
	if _, err := core.ParseDate(date); err != nil {
		return core.NewUserError(fmt.Sprintf("Invalid date '%s', expected format YYYY-MM-DD", date), err)
	}
	code := field("currency")
	if code == "" {
		return core.NewUserError("Invalid or missing currency", core.NewValidationError("currency", "is required"))
	}

	category, err := im.repo.Queries().GetCategoryByName(ctx, name)
	if err != nil {
		return err
	}
	if category == nil {
		return core.NewUserError(fmt.Sprintf("Non-existing category \"%s\"", name),
			core.NewValidationError("category", "does not exist"))
	}

	_, err = im.transactions.Create(ctx, TransactionInput{
		CategoryID:  category.ID,
		Description: field("description"),
		Amount:      amount.String(),
		Currency:    code,
		Date:        date,
	})
	return err
}

// Messages returns the row diagnostics as user-facing strings.
func (r ImportResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}

// Err joins the row diagnostics, or returns nil when every row imported.
func (r ImportResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}
