package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// BudgetView pairs a budget with a display label for its scope.
type BudgetView struct {
	core.Budget
	Label string
}

type BudgetService struct {
	repo   *storage.SQLiteRepository
	gate   *Gate
	logger *log.Logger
}

func NewBudgetService(repo *storage.SQLiteRepository, gate *Gate) *BudgetService {
	return &BudgetService{
		repo:   repo,
		gate:   gate,
		logger: log.Default().WithComponent(log.ComponentLedger),
	}
}

// Set updates the ceiling of the budget for scope, creating it on first use.
// A new budget starts with current equal to the sum of the transactions it
// covers, so later deltas keep it in step with the ledger.
func (s *BudgetService) Set(ctx context.Context, scope core.BudgetScope, total string) (core.Budget, error) {
	if err := scope.Validate(); err != nil {
		return core.Budget{}, err
	}
	if strings.TrimSpace(total) == "" {
		return core.Budget{}, core.NewValidationError("total_budget", "is required")
	}
	amount, err := core.ParseAmount(total)
	if err != nil {
		return core.Budget{}, err
	}

	var out core.Budget
	err = s.gate.Shared(func() error {
		return s.repo.InTx(ctx, func(q *storage.Queries) error {
			if id, ok := scope.CategoryID(); ok {
				if _, err := q.GetCategory(ctx, id); err != nil {
					return err
				}
			}
			existing, err := q.GetBudget(ctx, scope)
			if err != nil {
				return err
			}
			if existing != nil {
				existing.Total = amount
				out = *existing
				return q.UpdateBudget(ctx, out)
			}
			current, err := q.SumTransactions(ctx, scope)
			if err != nil {
				return err
			}
			out, err = q.CreateBudget(ctx, core.Budget{Scope: scope, Current: current, Total: amount})
			return err
		})
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("set %s budget: %w", scope, err)
	}

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldBudgetScope, scope.String(),
		"current", core.FormatAmount(out.Current),
		"total", core.FormatAmount(out.Total))
	return out, nil
}

// Remove deletes a budget by row id.
func (s *BudgetService) Remove(ctx context.Context, id int64) error {
	err := s.gate.Shared(func() error {
		return s.repo.InTx(ctx, func(q *storage.Queries) error {
			return q.DeleteBudget(ctx, id)
		})
	})
	if err != nil {
		return fmt.Errorf("remove budget %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Budget removed", "budget_id", id)
	return nil
}

// Get returns the budget for scope, or nil when none is set.
func (s *BudgetService) Get(ctx context.Context, scope core.BudgetScope) (*core.Budget, error) {
	return s.repo.Queries().GetBudget(ctx, scope)
}

// List returns every budget labelled with its category name, the aggregate
// budget first.
func (s *BudgetService) List(ctx context.Context) ([]BudgetView, error) {
	q := s.repo.Queries()
	budgets, err := q.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	categories, err := q.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	views := make([]BudgetView, 0, len(budgets))
	for _, b := range budgets {
		label := "All categories"
		if id, ok := b.Scope.CategoryID(); ok {
			label = names[id]
			if label == "" {
				label = fmt.Sprintf("Category %d", id)
			}
		}
		views = append(views, BudgetView{Budget: b, Label: label})
	}
	return views, nil
}
