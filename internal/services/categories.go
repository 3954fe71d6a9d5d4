package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type CategoryService struct {
	repo     *storage.SQLiteRepository
	currency *currency.Setting
	gate     *Gate
	events   EventPublisher
	logger   *log.Logger
}

func NewCategoryService(repo *storage.SQLiteRepository, setting *currency.Setting, gate *Gate, events EventPublisher) *CategoryService {
	return &CategoryService{
		repo:     repo,
		currency: setting,
		gate:     gate,
		events:   events,
		logger:   log.Default().WithComponent(log.ComponentLedger),
	}
}

func (s *CategoryService) Add(ctx context.Context, name, categoryType string) (core.Category, error) {
	typ, err := core.ParseCategoryType(categoryType)
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{Name: strings.TrimSpace(name), Type: typ}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	q := s.repo.Queries()
	existing, err := q.GetCategoryByName(ctx, c.Name)
	if err != nil {
		return core.Category{}, err
	}
	if existing != nil {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
	}

	created, err := q.CreateCategory(ctx, c.Name, c.Type)
	if err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category added", log.FieldCategoryID, created.ID, "name", created.Name, "type", string(created.Type))
	return created, nil
}

func (s *CategoryService) Rename(ctx context.Context, id int64, name string) (core.Category, error) {
	q := s.repo.Queries()
	c, err := q.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	c.Name = strings.TrimSpace(name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	existing, err := q.GetCategoryByName(ctx, c.Name)
	if err != nil {
		return core.Category{}, err
	}
	if existing != nil && existing.ID != id {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
	}
	if err := q.RenameCategory(ctx, id, c.Name); err != nil {
		return core.Category{}, fmt.Errorf("rename category %d: %w", id, err)
	}
	return c, nil
}

// Delete removes a category together with its transactions and its budget.
// The aggregate budget is left as it is.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	var (
		removed core.Category
		cascade int64
	)
	err := s.gate.Shared(func() error {
		return s.repo.InTx(ctx, func(q *storage.Queries) error {
			var err error
			if removed, err = q.GetCategory(ctx, id); err != nil {
				return err
			}
			if cascade, err = q.DeleteTransactionsByCategory(ctx, id); err != nil {
				return err
			}
			if err := q.DeleteBudgetByScope(ctx, core.PerCategory(id)); err != nil {
				return err
			}
			return q.DeleteCategory(ctx, id)
		})
	})
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Category deleted",
		log.FieldCategoryID, id,
		"name", removed.Name,
		"transactions_removed", cascade)

	ev := amqp.NewLedgerEvent(amqp.EventCategoryDeleted, s.currency.Get())
	ev.CategoryID = id
	ev.Category = removed.Name
	publish(ctx, s.events, ev)
	return nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.repo.Queries().GetCategory(ctx, id)
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.repo.Queries().ListCategories(ctx)
}
