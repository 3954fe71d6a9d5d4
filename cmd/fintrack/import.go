package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/services"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import transactions from a .csv or .xlsx file",
		Long: `Import reads a file with the columns date, category, description,
amount and currency. Each row is stored on its own; rejected rows are
listed with their 1-based row number.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	cmd.Flags().Bool("strict", false, "stop at the first rejected row and exit non-zero")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	table, err := services.ReadTable(filepath.Base(path), f)
	if err != nil {
		return err
	}

	return withApp(cmd, nil, func(ctx context.Context, app *cli.App) error {
		out := cmd.OutOrStdout()
		bar := cli.NewProgressBar(out, len(table.Rows), "Importing rows...")

		res, err := app.Importer.Import(ctx, table, services.ImportOptions{
			Strict: strict,
			Progress: func(done, _ int) {
				if bar != nil {
					_ = bar.Set(done)
				}
			},
		})
		if err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Finish()
		}

		fmt.Fprintln(out, cli.KeyValues("Import summary", [][2]string{
			{"File", filepath.Base(path)},
			{"Rows", strconv.Itoa(res.Total)},
			{"Imported", strconv.Itoa(res.Imported)},
			{"Rejected", strconv.Itoa(len(res.Errors))},
		}))
		for _, msg := range res.Messages() {
			fmt.Fprintln(out, cli.WarningStyle.Render("  "+msg))
		}

		if strict && len(res.Errors) > 0 {
			return fmt.Errorf("import stopped: %w", res.Err())
		}
		return nil
	})
}
