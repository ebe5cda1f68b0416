package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"expenseview/internal/aggregate"
	"expenseview/internal/core"
	"expenseview/internal/services"
	"expenseview/internal/source"
	"expenseview/internal/storage"
)

var _ source.Source = (*SQLiteAdapter)(nil)

// SQLiteAdapter exposes the SQLite repository and the expense service as a
// source.Source. Reads go straight to the repository; writes go through the
// service so they are announced on AMQP.
type SQLiteAdapter struct {
	storage services.Repository
	service *services.ExpenseService
	clock   aggregate.Clock
}

func NewSQLiteAdapter(storage services.Repository, service *services.ExpenseService, clock aggregate.Clock) *SQLiteAdapter {
	if clock == nil {
		clock = aggregate.SystemClock{}
	}
	return &SQLiteAdapter{
		storage: storage,
		service: service,
		clock:   clock,
	}
}

func (a *SQLiteAdapter) FetchAll(ctx context.Context, personID int64) ([]core.Expense, error) {
	return a.storage.ListExpenses(ctx, personID)
}

func (a *SQLiteAdapter) FetchByCategory(ctx context.Context, category string, personID int64) ([]core.Expense, error) {
	return a.storage.ListExpensesByCategory(ctx, personID, category)
}

func (a *SQLiteAdapter) Categories(ctx context.Context) ([]string, error) {
	return a.storage.ListCategories(ctx)
}

func (a *SQLiteAdapter) Add(ctx context.Context, e core.Expense, personID int64) (core.Expense, error) {
	return a.service.CreateExpense(ctx, e, personID)
}

// Delete maps storage.ErrNotFound onto source.ErrNotFound.
func (a *SQLiteAdapter) Delete(ctx context.Context, id int64) error {
	err := a.service.DeleteExpense(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %w", source.ErrNotFound, err)
	}
	return err
}

func (a *SQLiteAdapter) CurrentMonthTotal(ctx context.Context, personID int64) (decimal.Decimal, error) {
	return a.storage.MonthTotal(ctx, personID, a.clock.Now())
}
