package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

const importCSV = `date, category, description, amount, currency
2024-01-05,Food,groceries,12.50,BGN
2024-01-06,Food,refund,-5,BGN
2024-01-07,Rent,flat,10,BGN
2024-13-01,Food,typo,3,BGN
2024-01-08,Food,bus,7,XYZ
`

func TestImportCommitsValidRowsAndReportsTheRest(t *testing.T) {
	f := newFixture(t, "BGN")
	food := f.category(t, "Food", core.Expense)
	_, err := f.budgets.Set(f.ctx, core.PerCategory(food.ID), "100")
	require.NoError(t, err)
	_, err = f.budgets.Set(f.ctx, core.Aggregate(), "100")
	require.NoError(t, err)

	table, err := ReadCSV(strings.NewReader(importCSV))
	require.NoError(t, err)

	var progress []int
	res, err := f.importer.Import(f.ctx, table, ImportOptions{
		Progress: func(done, total int) { progress = append(progress, done) },
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, progress)
	assert.Equal(t, []string{
		"Invalid amount '-5' on row 2",
		`Non-existing category "Rent" on row 3`,
		"Invalid date '2024-13-01', expected format YYYY-MM-DD on row 4",
	}, res.Messages())
	assert.Error(t, res.Err())

	assert.True(t, f.budget(t, core.PerCategory(food.ID)).Current.Equal(dec("19.5")))
	assert.True(t, f.budget(t, core.Aggregate()).Current.Equal(dec("19.5")))
	f.assertLedger(t)
}

func TestImportStrictStopsAtFirstError(t *testing.T) {
	f := newFixture(t, "BGN")
	f.category(t, "Food", core.Expense)

	table, err := ReadCSV(strings.NewReader(importCSV))
	require.NoError(t, err)

	res, err := f.importer.Import(f.ctx, table, ImportOptions{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.ErrorIs(t, res.Errors[0], core.ErrInvalidAmount)
}

func TestImportRejectsBadHeader(t *testing.T) {
	f := newFixture(t, "BGN")

	table, err := ReadCSV(strings.NewReader("date,category,amount\n2024-01-01,Food,1\n"))
	require.NoError(t, err)

	_, err = f.importer.Import(f.ctx, table, ImportOptions{})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "expected columns")
}

func TestReadTable(t *testing.T) {
	_, err := ReadTable("data.ods", strings.NewReader(""))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = ReadTable("data.csv", strings.NewReader("date,category,description,amount,currency\n"))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = ReadTable("", strings.NewReader(""))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestReadXLSX(t *testing.T) {
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"Date", "Category", "Description", "Amount", "Currency"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"2024-01-05", "Food", "market", "12.5", "EUR"}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	table, err := ReadTable("upload.XLSX", buf)
	require.NoError(t, err)
	assert.Equal(t, ImportColumns, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"2024-01-05", "Food", "market", "12.5", "EUR"}, table.Rows[0])
}
