package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	cmd.Flags().Bool("status", false, "show the current schema version without applying changes")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	out := cmd.OutOrStdout()

	if status {
		version, dirty, err := storage.SchemaVersion(storage.DSN(cfg.SQLiteDBPath))
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		state := "clean"
		if dirty {
			state = "dirty"
		}
		fmt.Fprintln(out, cli.KeyValues("Database", [][2]string{
			{"Path", cfg.SQLiteDBPath},
			{"Version", fmt.Sprint(version)},
			{"State", state},
		}))
		return nil
	}

	logger.Info("Running database migrations", "path", cfg.SQLiteDBPath)
	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	fmt.Fprintln(out, cli.SuccessStyle.Render("Database is up to date"))
	return nil
}
