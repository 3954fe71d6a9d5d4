// Package cli provides the bootstrap shared by the fintrack commands:
// environment, logging, configuration, storage and the service graph.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/currency"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// SetupLogger builds the process logger from the configured level and
// format and installs it as the slog default.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	logger, err := log.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	return logger, nil
}

// LoadAndValidateConfig reads the configuration from v and validates it.
func LoadAndValidateConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitSQLite opens the database and applies migrations.
func InitSQLite(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		return nil, err
	}
	return repo, nil
}

// App is the wired service graph used by every command.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Repo    *storage.SQLiteRepository
	Rates   *currency.Client
	Setting *currency.Setting
	Caches  *cache.Manager

	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Budgets      *services.BudgetService
	Reports      *services.ReportService
	Reconciler   *services.Reconciler
	Importer     *services.Importer
}

// NewApp opens storage, loads the default currency and builds the services.
// events may be nil.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, events services.EventPublisher) (*App, error) {
	repo, err := InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}

	rates := currency.NewClient(currency.Options{
		BaseURL:  cfg.CurrencyBaseURL,
		Timeout:  cfg.CurrencyTimeout,
		CacheTTL: cfg.CurrencyCacheTTL,
		Logger:   logger,
	})
	if !rates.Configured() {
		logger.WithComponent(log.ComponentCurrency).Warn("No currency API configured, conversions use a rate of 1")
	}

	setting := currency.NewSetting(cfg.CurrencyFile)
	// Only a fetched code list may reject the stored code.
	known, err := rates.FetchCodes(ctx)
	if err != nil {
		logger.Warn("Currency codes unavailable, keeping the stored default unchecked", log.FieldError, err)
	}
	if err := setting.Load(known); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("load default currency: %w", err)
	}
	logger.Info("Default currency loaded", log.FieldCurrency, setting.Get(), "file", setting.Path())

	caches := cache.NewManager()
	for name, c := range rates.Caches() {
		caches.Register(name, c)
	}

	gate := services.NewGate()
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Repo:    repo,
		Rates:   rates,
		Setting: setting,
		Caches:  caches,
	}
	app.Transactions = services.NewTransactionService(repo, rates, setting, gate, events)
	app.Categories = services.NewCategoryService(repo, setting, gate, events)
	app.Budgets = services.NewBudgetService(repo, gate)
	app.Reports = services.NewReportService(repo, app.Budgets)
	app.Reconciler = services.NewReconciler(repo, rates, setting, gate, events)
	app.Importer = services.NewImporter(repo, app.Transactions)
	return app, nil
}

// Close stops background cache eviction and closes the database.
func (a *App) Close() error {
	a.Caches.Stop()
	return a.Repo.Close()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// GracefulShutdown waits for ctx to be cancelled, then runs shutdown with a
// bounded deadline.
func GracefulShutdown(ctx context.Context, logger *log.Logger, timeout time.Duration, shutdown func(context.Context) error) error {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
		}
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Shutdown complete")
	return nil
}
