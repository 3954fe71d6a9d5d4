package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Converter turns an amount in one currency into another. Failures fall
// back to an unchanged amount.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) decimal.Decimal
}

// TransactionInput is a transaction as submitted by a form, the CLI or an
// import row. Currency is the code Amount is expressed in; empty means the
// current default currency.
type TransactionInput struct {
	CategoryID  int64
	Description string
	Amount      string
	Currency    string
	Date        string
}

func (in TransactionInput) parse() (core.Transaction, error) {
	if in.CategoryID <= 0 {
		return core.Transaction{}, core.NewValidationError("category_id", "is required")
	}
	raw := strings.TrimSpace(in.Amount)
	if raw == "" {
		return core.Transaction{}, core.NewValidationError("amount", "is required")
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		return core.Transaction{}, err
	}

	date := core.Today()
	if s := strings.TrimSpace(in.Date); s != "" {
		if date, err = core.ParseDate(s); err != nil {
			return core.Transaction{}, err
		}
	}

	t := core.Transaction{
		CategoryID:  in.CategoryID,
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		Date:        date,
	}
	return t, t.Validate()
}

// TransactionService runs the transaction lifecycle. Every mutation moves
// the transaction row and both affected budgets in one SQL transaction.
type TransactionService struct {
	repo     *storage.SQLiteRepository
	rates    Converter
	currency *currency.Setting
	gate     *Gate
	events   EventPublisher
	logger   *log.StructuredLogger
}

func NewTransactionService(repo *storage.SQLiteRepository, rates Converter, setting *currency.Setting, gate *Gate, events EventPublisher) *TransactionService {
	return &TransactionService{
		repo:     repo,
		rates:    rates,
		currency: setting,
		gate:     gate,
		events:   events,
		logger:   log.NewStructuredLogger(log.Default().WithComponent(log.ComponentLedger)),
	}
}

// toDefault converts amount into the default currency. Callers hold the gate.
func (s *TransactionService) toDefault(ctx context.Context, amount decimal.Decimal, from string) (decimal.Decimal, string) {
	def := s.currency.Get()
	from = currency.NormalizeCode(from)
	if from == "" || from == def || s.rates == nil {
		return amount, def
	}
	return s.rates.Convert(ctx, amount, from, def).Round(core.StoragePlaces), def
}

// Create validates, converts and stores a transaction and adds its amount
// to the category and aggregate budgets.
func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	t, err := in.parse()
	if err != nil {
		return core.Transaction{}, err
	}

	var (
		created core.Transaction
		touched int
		code    string
	)
	err = s.gate.Shared(func() error {
		t.Amount, code = s.toDefault(ctx, t.Amount, in.Currency)
		return s.repo.InTx(ctx, func(q *storage.Queries) error {
			if _, err := q.GetCategory(ctx, t.CategoryID); err != nil {
				return err
			}
			pair, err := loadPair(ctx, q, t.CategoryID)
			if err != nil {
				return err
			}
			if touched, err = saveBudgets(ctx, q, pair.Apply(ledger.Add(t.Amount))); err != nil {
				return err
			}
			created, err = q.CreateTransaction(ctx, t)
			return err
		})
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.LogLedgerMutation(ctx, log.OpCreate, created.ID, created.CategoryID, core.FormatAmount(created.Amount), touched)
	publish(ctx, s.events, transactionEvent(amqp.EventTransactionCreated, created, code))
	return created, nil
}

// Update overwrites a transaction and moves both budgets by the difference.
// When the category changes, the old category budget loses the old amount,
// the new one gains the new amount and the aggregate sees a single delta.
func (s *TransactionService) Update(ctx context.Context, id int64, in TransactionInput) (core.Transaction, error) {
	t, err := in.parse()
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = id

	var (
		touched int
		code    string
	)
	err = s.gate.Shared(func() error {
		t.Amount, code = s.toDefault(ctx, t.Amount, in.Currency)
		return s.repo.InTx(ctx, func(q *storage.Queries) error {
			old, err := q.GetTransaction(ctx, id)
			if err != nil {
				return err
			}
			if _, err := q.GetCategory(ctx, t.CategoryID); err != nil {
				return err
			}

			var changed []*core.Budget
			if old.CategoryID == t.CategoryID {
				pair, err := loadPair(ctx, q, t.CategoryID)
				if err != nil {
					return err
				}
				changed = pair.Apply(ledger.Update(old.Amount, t.Amount))
			} else {
				from, err := q.GetBudget(ctx, core.PerCategory(old.CategoryID))
				if err != nil {
					return err
				}
				to, err := loadPair(ctx, q, t.CategoryID)
				if err != nil {
					return err
				}
				changed = ledger.Pair{Category: from}.Apply(ledger.Remove(old.Amount))
				changed = append(changed, to.ApplySplit(ledger.Add(t.Amount), ledger.Update(old.Amount, t.Amount))...)
			}
			if touched, err = saveBudgets(ctx, q, changed); err != nil {
				return err
			}
			return q.UpdateTransaction(ctx, t)
		})
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	s.logger.LogLedgerMutation(ctx, log.OpUpdate, t.ID, t.CategoryID, core.FormatAmount(t.Amount), touched)
	publish(ctx, s.events, transactionEvent(amqp.EventTransactionUpdated, t, code))
	return t, nil
}

// Delete removes a transaction and subtracts its amount from both budgets.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	var (
		removed core.Transaction
		touched int
		code    string
	)
	err := s.gate.Shared(func() error {
		code = s.currency.Get()
		return s.repo.InTx(ctx, func(q *storage.Queries) error {
			var err error
			if removed, err = q.GetTransaction(ctx, id); err != nil {
				return err
			}
			pair, err := loadPair(ctx, q, removed.CategoryID)
			if err != nil {
				return err
			}
			if touched, err = saveBudgets(ctx, q, pair.Apply(ledger.Remove(removed.Amount))); err != nil {
				return err
			}
			return q.DeleteTransaction(ctx, id)
		})
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	s.logger.LogLedgerMutation(ctx, log.OpDelete, removed.ID, removed.CategoryID, core.FormatAmount(removed.Amount), touched)
	publish(ctx, s.events, transactionEvent(amqp.EventTransactionDeleted, removed, code))
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.repo.Queries().GetTransaction(ctx, id)
}

// List returns every transaction with its category, newest first.
func (s *TransactionService) List(ctx context.Context) ([]core.Entry, error) {
	return s.repo.Queries().ListEntries(ctx, nil)
}

// loadPair fetches the category and aggregate budgets; either may be nil.
func loadPair(ctx context.Context, q *storage.Queries, categoryID int64) (ledger.Pair, error) {
	cat, err := q.GetBudget(ctx, core.PerCategory(categoryID))
	if err != nil {
		return ledger.Pair{}, err
	}
	agg, err := q.GetBudget(ctx, core.Aggregate())
	if err != nil {
		return ledger.Pair{}, err
	}
	return ledger.Pair{Category: cat, Aggregate: agg}, nil
}

func saveBudgets(ctx context.Context, q *storage.Queries, budgets []*core.Budget) (int, error) {
	for _, b := range budgets {
		if err := q.UpdateBudget(ctx, *b); err != nil {
			return 0, fmt.Errorf("save %s budget: %w", b.Scope, err)
		}
	}
	return len(budgets), nil
}

func transactionEvent(kind amqp.EventKind, t core.Transaction, code string) *amqp.LedgerEvent {
	ev := amqp.NewLedgerEvent(kind, code)
	ev.TransactionID = t.ID
	ev.CategoryID = t.CategoryID
	ev.Description = t.Description
	ev.Amount = core.FormatAmount(t.Amount)
	ev.Date = t.Date.String()
	return ev
}
