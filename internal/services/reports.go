package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	FilterDate     = "date"
	FilterAmount   = "amount"
	FilterCategory = "category"
)

// Filter selects report rows. Values are raw query parameters; a filter
// with missing values selects nothing.
type Filter struct {
	Type       string
	FromDate   string
	ToDate     string
	Amount     string
	CategoryID string
}

// Overview is everything the home page shows.
type Overview struct {
	Totals     core.Totals
	Entries    []core.Entry
	Categories []core.Category
	Budgets    []BudgetView
}

type ReportService struct {
	repo    *storage.SQLiteRepository
	budgets *BudgetService
}

func NewReportService(repo *storage.SQLiteRepository, budgets *BudgetService) *ReportService {
	return &ReportService{repo: repo, budgets: budgets}
}

// Filter returns the entries matching f, newest first. Date bounds are
// inclusive. Amounts are compared at two decimal places. An amount that
// does not parse is reported as ErrInvalidAmount.
func (s *ReportService) Filter(ctx context.Context, f Filter) ([]core.Entry, error) {
	var match func(core.Entry) bool

	switch f.Type {
	case FilterDate:
		if strings.TrimSpace(f.FromDate) == "" || strings.TrimSpace(f.ToDate) == "" {
			return nil, nil
		}
		from, err := core.ParseDate(f.FromDate)
		if err != nil {
			return nil, err
		}
		to, err := core.ParseDate(f.ToDate)
		if err != nil {
			return nil, err
		}
		match = func(e core.Entry) bool {
			return !e.Date.Before(from.Time) && !e.Date.After(to.Time)
		}
	case FilterAmount:
		if strings.TrimSpace(f.Amount) == "" {
			return nil, nil
		}
		want, err := core.ParseAmount(f.Amount)
		if err != nil {
			return nil, err
		}
		want = want.Round(core.DisplayPlaces)
		match = func(e core.Entry) bool {
			return e.Amount.Round(core.DisplayPlaces).Equal(want)
		}
	case FilterCategory:
		id, err := strconv.ParseInt(strings.TrimSpace(f.CategoryID), 10, 64)
		if err != nil {
			return nil, nil
		}
		match = func(e core.Entry) bool { return e.CategoryID == id }
	default:
		return nil, nil
	}

	entries, err := s.repo.Queries().ListEntries(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := entries[:0]
	for _, e := range entries {
		if match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ByIDs loads the entries named by a comma separated id list, as posted
// back by the report page. A malformed list selects nothing.
func (s *ReportService) ByIDs(ctx context.Context, list string) ([]core.Entry, error) {
	ids, ok := ParseIDList(list)
	if !ok || len(ids) == 0 {
		return nil, nil
	}
	return s.repo.Queries().ListEntries(ctx, ids)
}

// ParseIDList parses "1,2,3". It reports false if any element is not an id.
func ParseIDList(list string) ([]int64, bool) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, true
	}
	parts := strings.Split(list, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// Totals sums transaction amounts by category type.
func (s *ReportService) Totals(ctx context.Context) (core.Totals, error) {
	entries, err := s.repo.Queries().ListEntries(ctx, nil)
	if err != nil {
		return core.Totals{}, fmt.Errorf("list transactions: %w", err)
	}
	return TotalsOf(entries), nil
}

func TotalsOf(entries []core.Entry) core.Totals {
	t := core.Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, e := range entries {
		switch e.Category.Type {
		case core.Income:
			t.Income = t.Income.Add(e.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(e.Amount)
		}
	}
	return t
}

// FilterByType keeps the entries whose category has the given type.
func FilterByType(entries []core.Entry, typ core.CategoryType) []core.Entry {
	var out []core.Entry
	for _, e := range entries {
		if e.Category.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// CategoryBreakdown totals entries per category, ordered by name.
func CategoryBreakdown(entries []core.Entry) []core.CategoryTotal {
	byID := make(map[int64]*core.CategoryTotal)
	for _, e := range entries {
		ct, ok := byID[e.CategoryID]
		if !ok {
			ct = &core.CategoryTotal{CategoryID: e.CategoryID, Name: e.Category.Name, Type: e.Category.Type}
			byID[e.CategoryID] = ct
		}
		ct.Amount = ct.Amount.Add(e.Amount)
	}
	out := make([]core.CategoryTotal, 0, len(byID))
	for _, ct := range byID {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Overview loads the home page data concurrently.
func (s *ReportService) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	q := s.repo.Queries()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		entries, err := q.ListEntries(gctx, nil)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		ov.Entries = entries
		ov.Totals = TotalsOf(entries)
		return nil
	})
	g.Go(func() error {
		categories, err := q.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		ov.Categories = categories
		return nil
	})
	if s.budgets != nil {
		g.Go(func() error {
			budgets, err := s.budgets.List(gctx)
			ov.Budgets = budgets
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}
