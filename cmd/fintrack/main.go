package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

var (
	cfgFile string
	envFile string
	version = "dev"

	v      = viper.New()
	cfg    *config.Config
	logger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "fintrack",
		Short: "Personal income and expense tracker",
		Long: `fintrack records income and expense transactions by category, keeps
per-category and overall budgets in step with every change, converts
amounts into a default currency and produces reports.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	_ = v.BindPFlag(config.KeySQLiteDBPath, rootCmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(currencyCmd())
	rootCmd.AddCommand(budgetCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(envFile); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("fintrack")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var err error
	if cfg, err = cli.LoadAndValidateConfig(v); err != nil {
		return err
	}
	if logger, err = cli.SetupLogger(cfg); err != nil {
		return err
	}
	return nil
}

// withApp builds the service graph for one command run and closes it
// afterwards.
func withApp(cmd *cobra.Command, events services.EventPublisher, fn func(ctx context.Context, app *cli.App) error) error {
	ctx := cmd.Context()
	app, err := cli.NewApp(ctx, cfg, logger, events)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to close application", log.FieldError, err)
		}
	}()
	return fn(ctx, app)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "fintrack", version)
		},
	}
}
