package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/storage"
)

type fakeRates struct {
	rates map[string]decimal.Decimal
	known []string
	err   error
}

func (f *fakeRates) Convert(_ context.Context, amount decimal.Decimal, from, to string) decimal.Decimal {
	r, ok := f.rates[from+"/"+to]
	if !ok {
		return amount
	}
	return core.Rescale(amount, r)
}

func (f *fakeRates) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	if r, ok := f.rates[from+"/"+to]; ok {
		return r, nil
	}
	return decimal.NewFromInt(1), nil
}

func (f *fakeRates) IsKnown(_ context.Context, code string) bool {
	for _, k := range f.known {
		if k == code {
			return true
		}
	}
	return false
}

type recordedEvents struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
}

func (r *recordedEvents) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordedEvents) kinds() []amqp.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]amqp.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fixture struct {
	ctx        context.Context
	dbPath     string
	repo       *storage.SQLiteRepository
	setting    *currency.Setting
	rates      *fakeRates
	events     *recordedEvents
	tx         *TransactionService
	reconciler *Reconciler
	budgets    *BudgetService
	categories *CategoryService
	importer   *Importer
	reports    *ReportService
}

func newFixture(t *testing.T, code string) *fixture {
	t.Helper()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "fintrack.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	setting := currency.NewSetting(filepath.Join(dir, "currency.txt"))
	require.NoError(t, setting.Set(code))

	rates := &fakeRates{
		rates: map[string]decimal.Decimal{},
		known: []string{"BGN", "EUR", "USD"},
	}
	events := &recordedEvents{}
	gate := NewGate()

	f := &fixture{
		ctx:     context.Background(),
		dbPath:  dbPath,
		repo:    repo,
		setting: setting,
		rates:   rates,
		events:  events,
	}
	f.tx = NewTransactionService(repo, rates, setting, gate, events)
	f.reconciler = NewReconciler(repo, rates, setting, gate, events)
	f.budgets = NewBudgetService(repo, gate)
	f.categories = NewCategoryService(repo, setting, gate, events)
	f.importer = NewImporter(repo, f.tx)
	f.reports = NewReportService(repo, f.budgets)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) category(t *testing.T, name string, typ core.CategoryType) core.Category {
	t.Helper()
	c, err := f.categories.Add(f.ctx, name, string(typ))
	require.NoError(t, err)
	return c
}

func (f *fixture) create(t *testing.T, categoryID int64, amount, date string) core.Transaction {
	t.Helper()
	tx, err := f.tx.Create(f.ctx, TransactionInput{CategoryID: categoryID, Amount: amount, Date: date})
	require.NoError(t, err)
	return tx
}

func (f *fixture) budget(t *testing.T, scope core.BudgetScope) core.Budget {
	t.Helper()
	b, err := f.repo.Queries().GetBudget(f.ctx, scope)
	require.NoError(t, err)
	require.NotNil(t, b, "no %s budget", scope)
	return *b
}

// exec runs raw SQL against the fixture database on a separate connection.
func (f *fixture) exec(t *testing.T, stmt string) {
	t.Helper()
	db, err := sql.Open("sqlite", storage.DSN(f.dbPath))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(f.ctx, stmt)
	require.NoError(t, err)
}

// assertLedger checks every budget against the transactions it covers.
func (f *fixture) assertLedger(t *testing.T) {
	t.Helper()
	q := f.repo.Queries()
	budgets, err := q.ListBudgets(f.ctx)
	require.NoError(t, err)
	for _, b := range budgets {
		sum, err := q.SumTransactions(f.ctx, b.Scope)
		require.NoError(t, err)
		assert.True(t, sum.Equal(b.Current), "%s budget: current %s, transactions sum %s", b.Scope, b.Current, sum)
	}
}
