// Package storage persists expenses in SQLite. Prices are stored as decimal
// text and deletes are soft.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"expenseview/internal/core"
	"expenseview/internal/log"
)

// ErrNotFound is returned when no live expense has the requested id.
var ErrNotFound = errors.New("expense not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("SQLite ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateExpense stores e for personID and records its category. The
// returned expense carries the new id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense, personID int64) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	if err := q.EnsureCategory(ctx, e.Category); err != nil {
		return core.Expense{}, fmt.Errorf("ensure category: %w", err)
	}
	row, err := q.CreateExpense(ctx, CreateExpenseParams{
		PersonID:    personID,
		Category:    e.Category,
		Price:       priceToDB(e.Price),
		Description: e.Description,
		ExpenseDate: dateToDB(e.Date),
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit: %w", err)
	}

	saved, err := row.toCore()
	if err != nil {
		return core.Expense{}, err
	}
	r.logger.InfoContext(ctx, "Expense saved to SQLite",
		log.FieldExpenseID, saved.ID,
		log.FieldPersonID, personID,
		log.FieldCategory, saved.Category,
		log.FieldPrice, saved.Amount().String())
	return saved, nil
}

// GetExpense returns a live expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return row.toCore()
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, personID int64) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return toCoreAll(rows)
}

func (r *SQLiteRepository) ListExpensesByCategory(ctx context.Context, personID int64, category string) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByCategory(ctx, ListExpensesByCategoryParams{PersonID: personID, Category: category})
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", category, err)
	}
	return toCoreAll(rows)
}

// MonthTotal sums the person's prices dated in the month of now.
func (r *SQLiteRepository) MonthTotal(ctx context.Context, personID int64, now time.Time) (decimal.Decimal, error) {
	rows, err := r.queries.ListExpensesInMonth(ctx, ListExpensesInMonthParams{
		PersonID:    personID,
		MonthPrefix: now.Format("2006-01") + "-%",
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("list month expenses: %w", err)
	}
	items, err := toCoreAll(rows)
	if err != nil {
		return decimal.Zero, err
	}
	return core.SumPrices(items), nil
}

// SoftDeleteExpense marks the expense deleted. Deleting a missing or
// already deleted expense returns ErrNotFound.
func (r *SQLiteRepository) SoftDeleteExpense(ctx context.Context, id int64) error {
	n, err := r.queries.SoftDeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("soft delete expense %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("soft delete expense %d: %w", id, ErrNotFound)
	}
	r.logger.InfoContext(ctx, "Expense soft deleted", log.FieldExpenseID, id)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (e Expense) toCore() (core.Expense, error) {
	out := core.Expense{
		ID:          e.ID,
		PersonID:    e.PersonID,
		Category:    e.Category,
		Description: e.Description,
	}
	if e.Price.Valid {
		d, err := decimal.NewFromString(e.Price.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %d: price %q: %w", e.ID, e.Price.String, err)
		}
		out.Price = core.NewPrice(d)
	}
	if e.ExpenseDate.Valid {
		d, err := core.ParseDate(e.ExpenseDate.String)
		if err != nil {
			return core.Expense{}, fmt.Errorf("expense %d: date %q: %w", e.ID, e.ExpenseDate.String, err)
		}
		out.Date = d
	}
	return out, nil
}

func toCoreAll(rows []Expense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func priceToDB(p decimal.NullDecimal) sql.NullString {
	if !p.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: p.Decimal.String(), Valid: true}
}

func dateToDB(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
