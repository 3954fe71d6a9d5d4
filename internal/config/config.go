// Package config loads process configuration from the environment, an
// optional config file and command-line flags through viper.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fintrack/internal/currency"
)

// Configuration keys. They double as environment variable names once
// upper-cased, so "sqlite_db_path" is read from SQLITE_DB_PATH.
const (
	KeyPort             = "port"
	KeySQLiteDBPath     = "sqlite_db_path"
	KeyAMQPURL          = "amqp_url"
	KeyAMQPExchange     = "amqp_exchange"
	KeyAMQPQueue        = "amqp_queue"
	KeySpreadsheetID    = "google_spreadsheet_id"
	KeySheetName        = "google_sheet_name"
	KeyReportSheet      = "google_report_sheet"
	KeyCurrencyAPIKey   = "currency_api_key"
	KeyCurrencyBaseURL  = "currency_api_base_url"
	KeyCurrencyFile     = "currency_file"
	KeyCurrencyTimeout  = "currency_timeout"
	KeyCurrencyCacheTTL = "currency_cache_ttl"
	KeyRateLimit        = "rate_limit_per_minute"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Database
	SQLiteDBPath string

	// AMQP ledger events; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror; empty spreadsheet id disables it
	GoogleSpreadsheetID string
	GoogleSheetName     string
	GoogleReportSheet   string

	// Currency service
	CurrencyAPIKey   string
	CurrencyBaseURL  string
	CurrencyFile     string
	CurrencyTimeout  time.Duration
	CurrencyCacheTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8081")
	v.SetDefault(KeyRateLimit, 60)
	v.SetDefault(KeySQLiteDBPath, "./data/fintrack.db")
	v.SetDefault(KeyAMQPURL, "")
	v.SetDefault(KeyAMQPExchange, "fintrack")
	v.SetDefault(KeyAMQPQueue, "ledger_events")
	v.SetDefault(KeySpreadsheetID, "")
	v.SetDefault(KeySheetName, "Ledger")
	v.SetDefault(KeyReportSheet, "Report")
	v.SetDefault(KeyCurrencyAPIKey, "")
	v.SetDefault(KeyCurrencyBaseURL, "")
	v.SetDefault(KeyCurrencyFile, "./data/currency.txt")
	v.SetDefault(KeyCurrencyTimeout, currency.DefaultTimeout)
	v.SetDefault(KeyCurrencyCacheTTL, currency.DefaultTTL)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// Load reads the configuration from v after binding defaults and the
// environment. Validation is left to the caller.
func Load(v *viper.Viper) *Config {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:               v.GetString(KeyPort),
		RateLimitPerMinute: v.GetInt(KeyRateLimit),
		SQLiteDBPath:       v.GetString(KeySQLiteDBPath),

		AMQPURL:      v.GetString(KeyAMQPURL),
		AMQPExchange: v.GetString(KeyAMQPExchange),
		AMQPQueue:    v.GetString(KeyAMQPQueue),

		GoogleSpreadsheetID: v.GetString(KeySpreadsheetID),
		GoogleSheetName:     v.GetString(KeySheetName),
		GoogleReportSheet:   v.GetString(KeyReportSheet),

		CurrencyAPIKey:   v.GetString(KeyCurrencyAPIKey),
		CurrencyBaseURL:  v.GetString(KeyCurrencyBaseURL),
		CurrencyFile:     v.GetString(KeyCurrencyFile),
		CurrencyTimeout:  v.GetDuration(KeyCurrencyTimeout),
		CurrencyCacheTTL: v.GetDuration(KeyCurrencyCacheTTL),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
	}
	if cfg.CurrencyBaseURL == "" {
		cfg.CurrencyBaseURL = currency.BaseURLForKey(cfg.CurrencyAPIKey)
	}
	return cfg
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// SheetsEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}
	if strings.TrimSpace(c.CurrencyFile) == "" {
		errors = append(errors, "currency file path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if strings.TrimSpace(c.GoogleSheetName) == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if strings.TrimSpace(c.GoogleReportSheet) == "" {
			errors = append(errors, "Google report sheet name is required when a spreadsheet ID is set")
		}
	}

	if c.CurrencyBaseURL != "" {
		if u, err := url.Parse(c.CurrencyBaseURL); err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid currency API base URL '%s': must be an absolute http(s) URL", c.CurrencyBaseURL))
		}
	}
	if c.CurrencyTimeout <= 0 || c.CurrencyTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid currency timeout %v: must be between 0 and 60s", c.CurrencyTimeout))
	}
	if c.CurrencyCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid currency cache TTL %v: must be at least 1 second", c.CurrencyCacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "console", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of text, json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}
