package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/services"
)

var reportWriters = map[string]func(io.Writer, []core.Entry, string) error{
	"csv":  export.WriteCSV,
	"pdf":  export.WritePDF,
	"xlsx": export.WriteXLSX,
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summaries and exports",
	}

	exp := &cobra.Command{
		Use:   "export",
		Short: "Export transactions to csv, pdf or xlsx",
		Args:  cobra.NoArgs,
		RunE:  runReportExport,
	}
	exp.Flags().String("format", "csv", "export format (csv, pdf, xlsx)")
	exp.Flags().String("out", "", "output file (default: stdout)")
	exp.Flags().String("from", "", "first date, YYYY-MM-DD (needs --to)")
	exp.Flags().String("to", "", "last date, YYYY-MM-DD (needs --from)")
	exp.Flags().Int64("category", 0, "only this category id")
	exp.MarkFlagsRequiredTogether("from", "to")
	exp.MarkFlagsMutuallyExclusive("from", "category")
	cmd.AddCommand(exp)

	cmd.AddCommand(&cobra.Command{
		Use:   "totals",
		Short: "Print income and expense totals",
		Args:  cobra.NoArgs,
		RunE:  runReportTotals,
	})
	return cmd
}

func runReportExport(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	categoryID, _ := cmd.Flags().GetInt64("category")

	write, ok := reportWriters[format]
	if !ok {
		return fmt.Errorf("unknown format %q: must be csv, pdf or xlsx", format)
	}

	return withApp(cmd, nil, func(ctx context.Context, app *cli.App) error {
		var (
			entries []core.Entry
			err     error
		)
		switch {
		case from != "":
			entries, err = app.Reports.Filter(ctx, services.Filter{Type: services.FilterDate, FromDate: from, ToDate: to})
		case categoryID != 0:
			entries, err = app.Reports.Filter(ctx, services.Filter{Type: services.FilterCategory, CategoryID: strconv.FormatInt(categoryID, 10)})
		default:
			entries, err = app.Transactions.List(ctx)
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no transactions to export")
		}

		var buf bytes.Buffer
		if err := write(&buf, entries, app.Setting.Get()); err != nil {
			return fmt.Errorf("render %s export: %w", format, err)
		}
		if outPath == "" {
			_, err := buf.WriteTo(cmd.OutOrStdout())
			return err
		}
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), cli.SuccessStyle.Render(
			fmt.Sprintf("%d transactions written to %s", len(entries), outPath)))
		return nil
	})
}

func runReportTotals(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, nil, func(ctx context.Context, app *cli.App) error {
		totals, err := app.Reports.Totals(ctx)
		if err != nil {
			return err
		}
		currency := app.Setting.Get()
		fmt.Fprintln(cmd.OutOrStdout(), cli.KeyValues("Totals", [][2]string{
			{"Income", core.FormatAmount(totals.Income) + " " + currency},
			{"Expense", core.FormatAmount(totals.Expense) + " " + currency},
		}))
		return nil
	})
}
