package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Expense is a row of the expenses table.
type Expense struct {
	ID          int64
	PersonID    int64
	Category    string
	Price       sql.NullString
	Description string
	ExpenseDate sql.NullString
	CreatedAt   sql.NullTime
	DeletedAt   sql.NullTime
}

const expenseColumns = `id, person_id, category, price, description, expense_date, created_at, deleted_at`

func scanExpense(row interface{ Scan(...any) error }) (Expense, error) {
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.PersonID,
		&i.Category,
		&i.Price,
		&i.Description,
		&i.ExpenseDate,
		&i.CreatedAt,
		&i.DeletedAt,
	)
	return i, err
}

func (q *Queries) listExpenses(ctx context.Context, query string, args ...interface{}) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (person_id, category, price, description, expense_date)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	PersonID    int64
	Category    string
	Price       sql.NullString
	Description string
	ExpenseDate sql.NullString
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.PersonID,
		arg.Category,
		arg.Price,
		arg.Description,
		arg.ExpenseDate,
	)
	return scanExpense(row)
}

const getExpense = `-- name: GetExpense :one
SELECT ` + expenseColumns + ` FROM expenses
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpensesByPerson = `-- name: ListExpensesByPerson :many
SELECT ` + expenseColumns + ` FROM expenses
WHERE person_id = ? AND deleted_at IS NULL
ORDER BY id`

func (q *Queries) ListExpensesByPerson(ctx context.Context, personID int64) ([]Expense, error) {
	return q.listExpenses(ctx, listExpensesByPerson, personID)
}

const listExpensesByCategory = `-- name: ListExpensesByCategory :many
SELECT ` + expenseColumns + ` FROM expenses
WHERE person_id = ? AND category = ? AND deleted_at IS NULL
ORDER BY id`

type ListExpensesByCategoryParams struct {
	PersonID int64
	Category string
}

func (q *Queries) ListExpensesByCategory(ctx context.Context, arg ListExpensesByCategoryParams) ([]Expense, error) {
	return q.listExpenses(ctx, listExpensesByCategory, arg.PersonID, arg.Category)
}

const listExpensesInMonth = `-- name: ListExpensesInMonth :many
SELECT ` + expenseColumns + ` FROM expenses
WHERE person_id = ? AND expense_date LIKE ? AND deleted_at IS NULL
ORDER BY id`

type ListExpensesInMonthParams struct {
	PersonID int64
	// MonthPrefix matches expense_date, e.g. "2025-06-%".
	MonthPrefix string
}

func (q *Queries) ListExpensesInMonth(ctx context.Context, arg ListExpensesInMonthParams) ([]Expense, error) {
	return q.listExpenses(ctx, listExpensesInMonth, arg.PersonID, arg.MonthPrefix)
}

const softDeleteExpense = `-- name: SoftDeleteExpense :execrows
UPDATE expenses SET deleted_at = CURRENT_TIMESTAMP
WHERE id = ? AND deleted_at IS NULL`

func (q *Queries) SoftDeleteExpense(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, softDeleteExpense, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listCategories = `-- name: ListCategories :many
SELECT name FROM categories ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const ensureCategory = `-- name: EnsureCategory :exec
INSERT OR IGNORE INTO categories (name) VALUES (?)`

func (q *Queries) EnsureCategory(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, ensureCategory, name)
	return err
}
