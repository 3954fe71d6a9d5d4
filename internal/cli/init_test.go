package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Component: "test", Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("FINTRACK_CLI_TEST=loaded\n"), 0o600))
	t.Setenv("FINTRACK_CLI_TEST", "")
	require.NoError(t, os.Unsetenv("FINTRACK_CLI_TEST"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("FINTRACK_CLI_TEST"))
}

func TestNewAppWithoutCurrencyAPI(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		SQLiteDBPath:     filepath.Join(dir, "fintrack.db"),
		CurrencyFile:     filepath.Join(dir, "currency.txt"),
		CurrencyTimeout:  time.Second,
		CurrencyCacheTTL: time.Minute,
	}

	app, err := NewApp(context.Background(), cfg, quietLogger(), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.False(t, app.Rates.Configured())
	assert.Equal(t, "BGN", app.Setting.Get())
	require.NoError(t, app.Repo.Ping(context.Background()))

	cats, err := app.Categories.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestNewAppKeepsStoredCurrencyWhenCodesUnavailable(t *testing.T) {
	dir := t.TempDir()
	currencyFile := filepath.Join(dir, "currency.txt")
	require.NoError(t, os.WriteFile(currencyFile, []byte("GBP\n"), 0o600))

	cfg := &config.Config{
		SQLiteDBPath:     filepath.Join(dir, "fintrack.db"),
		CurrencyFile:     currencyFile,
		CurrencyTimeout:  time.Second,
		CurrencyCacheTTL: time.Minute,
	}
	app, err := NewApp(context.Background(), cfg, quietLogger(), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "GBP", app.Setting.Get())
}

func TestGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := GracefulShutdown(ctx, quietLogger(), time.Second, func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	err = GracefulShutdown(ctx, quietLogger(), time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestKeyValues(t *testing.T) {
	out := KeyValues("Import", [][2]string{{"rows", "3"}, {"imported", "2"}})
	assert.Contains(t, out, "Import")
	assert.Contains(t, out, "rows:")
	assert.Contains(t, out, "imported:")
}

func TestNewProgressBarSkipsEmptyWork(t *testing.T) {
	assert.Nil(t, NewProgressBar(io.Discard, 0, "rows"))
	bar := NewProgressBar(io.Discard, 2, "rows")
	require.NotNil(t, bar)
	require.NoError(t, bar.Add(2))
}
