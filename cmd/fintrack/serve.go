package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 5 * time.Minute
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := cli.SignalContext(cmd.Context(), logger)
	defer cancel()

	var events services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events will not be published",
				log.FieldError, err, "error_type", log.ErrorTypeExternal)
		} else {
			defer client.Close()
			events = client
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	var mirror sheets.ReportWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromConfig(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Warn("Google Sheets unavailable, spreadsheet export disabled",
				log.FieldError, err, "error_type", log.ErrorTypeExternal)
		} else {
			mirror = client
		}
	}

	return withApp(cmd, events, func(_ context.Context, app *cli.App) error {
		app.Caches.StartCleanup(ctx, cacheCleanupInterval)

		srv := apphttp.NewServer(cfg.Addr(), apphttp.Deps{
			Transactions: app.Transactions,
			Categories:   app.Categories,
			Budgets:      app.Budgets,
			Reports:      app.Reports,
			Reconciler:   app.Reconciler,
			Importer:     app.Importer,
			Codes:        app.Rates,
			DB:           app.Repo,
			ReportMirror: mirror,
			ReportSheet:  cfg.GoogleReportSheet,
		}, apphttp.Options{
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			Logger:             logger,
		})

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("Starting fintrack server",
				"port", cfg.Port,
				log.FieldCurrency, app.Setting.Get(),
				"events", events != nil,
				"sheets", mirror != nil)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
				cancel()
				return
			}
			serveErr <- nil
		}()

		shutdownErr := cli.GracefulShutdown(ctx, logger, shutdownTimeout, srv.Shutdown)
		if err := <-serveErr; err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			return err
		}
		return shutdownErr
	})
}
