package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds every statement the application runs against the ledger
// tables.
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Categories

const createCategory = `INSERT INTO categories (name, category_type) VALUES (?, ?) RETURNING id, name, category_type`

func (q *Queries) CreateCategory(ctx context.Context, name string, typ core.CategoryType) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx, createCategory, name, string(typ)).Scan(&c.ID, &c.Name, &c.Type)
	if err != nil {
		return core.Category{}, mapConstraint(err)
	}
	return c, nil
}

const getCategory = `SELECT id, name, category_type FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx, getCategory, id).Scan(&c.ID, &c.Name, &c.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	return c, err
}

const getCategoryByName = `SELECT id, name, category_type FROM categories WHERE name = ?`

// GetCategoryByName returns nil when no category has that name.
func (q *Queries) GetCategoryByName(ctx context.Context, name string) (*core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx, getCategoryByName, name).Scan(&c.ID, &c.Name, &c.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const listCategories = `SELECT id, name, category_type FROM categories ORDER BY category_type, name`

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const renameCategory = `UPDATE categories SET name = ? WHERE id = ?`

func (q *Queries) RenameCategory(ctx context.Context, id int64, name string) error {
	res, err := q.db.ExecContext(ctx, renameCategory, name, id)
	if err != nil {
		return mapConstraint(err)
	}
	return requireAffected(res, "category", id)
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "category", id)
}

// Transactions

const createTransaction = `INSERT INTO transactions (category_id, description, amount, date)
VALUES (?, ?, ?, ?) RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := q.db.QueryRowContext(ctx, createTransaction,
		t.CategoryID, t.Description, t.Amount, t.Date.String()).Scan(&t.ID); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

const getTransaction = `SELECT id, category_id, description, amount, date FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewNotFoundError("transaction", id)
	}
	return t, err
}

const updateTransaction = `UPDATE transactions
SET category_id = ?, description = ?, amount = ?, date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		t.CategoryID, t.Description, t.Amount, t.Date.String(), t.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, "transaction", t.ID)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "transaction", id)
}

const deleteTransactionsByCategory = `DELETE FROM transactions WHERE category_id = ?`

func (q *Queries) DeleteTransactionsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransactionsByCategory, categoryID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listTransactions = `SELECT id, category_id, description, amount, date FROM transactions`

// ListTransactions returns transactions, newest first. A per-category scope
// restricts the result to that category.
func (q *Queries) ListTransactions(ctx context.Context, scope core.BudgetScope) ([]core.Transaction, error) {
	query := listTransactions
	var args []interface{}
	if id, ok := scope.CategoryID(); ok {
		query += ` WHERE category_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SumTransactions totals the amounts attributed to scope.
func (q *Queries) SumTransactions(ctx context.Context, scope core.BudgetScope) (decimal.Decimal, error) {
	txs, err := q.ListTransactions(ctx, scope)
	if err != nil {
		return decimal.Zero, err
	}
	return core.SumAmounts(txs), nil
}

const listEntries = `SELECT t.id, t.category_id, t.description, t.amount, t.date, c.name, c.category_type
FROM transactions t
JOIN categories c ON c.id = t.category_id`

// ListEntries returns transactions joined with their category. When ids is
// non-empty only those transactions are returned.
func (q *Queries) ListEntries(ctx context.Context, ids []int64) ([]core.Entry, error) {
	query := listEntries
	args := make([]interface{}, 0, len(ids))
	if len(ids) > 0 {
		query += ` WHERE t.id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY t.date DESC, t.id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var (
			e    core.Entry
			date string
		)
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.Description, &e.Amount, &date,
			&e.Category.Name, &e.Category.Type); err != nil {
			return nil, err
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", e.ID, err)
		}
		e.Category.ID = e.CategoryID
		out = append(out, e)
	}
	return out, rows.Err()
}

// Budgets

const getBudgetByCategory = `SELECT id, category_id, current_budget, total_budget FROM budgets WHERE category_id = ?`

// GetBudget returns the budget for scope, or nil when none is configured.
func (q *Queries) GetBudget(ctx context.Context, scope core.BudgetScope) (*core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx, getBudgetByCategory, scope.Key()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const getBudgetByID = `SELECT id, category_id, current_budget, total_budget FROM budgets WHERE id = ?`

func (q *Queries) GetBudgetByID(ctx context.Context, id int64) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx, getBudgetByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.NewNotFoundError("budget", id)
	}
	return b, err
}

const createBudget = `INSERT INTO budgets (category_id, current_budget, total_budget) VALUES (?, ?, ?) RETURNING id`

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := q.db.QueryRowContext(ctx, createBudget, b.Scope.Key(), b.Current, b.Total).Scan(&b.ID); err != nil {
		return core.Budget{}, mapConstraint(err)
	}
	return b, nil
}

const updateBudget = `UPDATE budgets SET current_budget = ?, total_budget = ? WHERE id = ?`

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := q.db.ExecContext(ctx, updateBudget, b.Current, b.Total, b.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, "budget", b.ID)
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "budget", id)
}

const deleteBudgetByCategory = `DELETE FROM budgets WHERE category_id = ?`

func (q *Queries) DeleteBudgetByScope(ctx context.Context, scope core.BudgetScope) error {
	_, err := q.db.ExecContext(ctx, deleteBudgetByCategory, scope.Key())
	return err
}

const listBudgets = `SELECT id, category_id, current_budget, total_budget FROM budgets ORDER BY category_id`

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RescaleAll multiplies every transaction amount and both amounts of every
// budget by rate. Run it inside a transaction.
func (q *Queries) RescaleAll(ctx context.Context, rate decimal.Decimal) (RescaleResult, error) {
	var res RescaleResult

	txs, err := q.ListTransactions(ctx, core.Aggregate())
	if err != nil {
		return res, fmt.Errorf("list transactions: %w", err)
	}
	for _, t := range txs {
		if _, err := q.db.ExecContext(ctx, `UPDATE transactions SET amount = ? WHERE id = ?`,
			core.Rescale(t.Amount, rate), t.ID); err != nil {
			return res, fmt.Errorf("rescale transaction %d: %w", t.ID, err)
		}
		res.Transactions++
	}

	budgets, err := q.ListBudgets(ctx)
	if err != nil {
		return res, fmt.Errorf("list budgets: %w", err)
	}
	for _, b := range budgets {
		b.Current = core.Rescale(b.Current, rate)
		b.Total = core.Rescale(b.Total, rate)
		if err := q.UpdateBudget(ctx, b); err != nil {
			return res, fmt.Errorf("rescale budget %d: %w", b.ID, err)
		}
		res.Budgets++
	}
	return res, nil
}

// RescaleResult counts the rows touched by RescaleAll.
type RescaleResult struct {
	Transactions int
	Budgets      int
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t    core.Transaction
		date string
	)
	if err := row.Scan(&t.ID, &t.CategoryID, &t.Description, &t.Amount, &date); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	t.Date = d
	return t, nil
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b   core.Budget
		key int64
	)
	if err := row.Scan(&b.ID, &key, &b.Current, &b.Total); err != nil {
		return core.Budget{}, err
	}
	b.Scope = core.ScopeFromKey(key)
	return b, nil
}

func requireAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NewNotFoundError(entity, id)
	}
	return nil
}

func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", core.ErrDuplicateName, err)
	}
	return err
}
