package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/viper"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	mem "fintrack/internal/sheets/memory"
	"fintrack/internal/worker"
)

// fintrack-worker mirrors committed ledger events from the AMQP queue into
// the spreadsheet journal.
func main() {
	if err := cli.LoadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		log.Default().Error("Failed to load env file", log.FieldError, err)
		os.Exit(1)
	}

	cfg, err := cli.LoadAndValidateConfig(viper.New())
	if err != nil {
		log.Default().Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		log.Default().Error("Failed to set up logging", log.FieldError, err)
		os.Exit(1)
	}
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		os.Exit(1)
	}
	defer repo.Close()

	var mirror sheets.EventAppender
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromConfig(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = mem.New()
		logger.Info("Google Sheets disabled, events are kept in memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewMirrorWorker(repo.Queries(), mirror)
	if err := w.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
