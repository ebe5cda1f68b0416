// Package source declares the outbound ports the presentation engine reads
// expenses through, plus decorators shared by every adapter.
package source

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"expenseview/internal/core"
)

// ErrNotFound is returned by adapters when the expense to delete does not
// exist.
var ErrNotFound = errors.New("expense not found")

// Ports for outbound adapters.
type (
	// ExpenseFetcher returns expenses owned by a person.
	ExpenseFetcher interface {
		FetchAll(ctx context.Context, personID int64) ([]core.Expense, error)
		FetchByCategory(ctx context.Context, category string, personID int64) ([]core.Expense, error)
	}

	// CategoryLister returns the category names known to the backend.
	CategoryLister interface {
		Categories(ctx context.Context) ([]string, error)
	}

	ExpenseDeleter interface {
		Delete(ctx context.Context, id int64) error
	}

	// ExpenseAdder persists a new expense and returns it with its ID set.
	ExpenseAdder interface {
		Add(ctx context.Context, e core.Expense, personID int64) (core.Expense, error)
	}

	// MonthTotalReader returns the person's spend for the current month.
	MonthTotalReader interface {
		CurrentMonthTotal(ctx context.Context, personID int64) (decimal.Decimal, error)
	}

	// Source bundles every port. Each backend implements it.
	Source interface {
		ExpenseFetcher
		CategoryLister
		ExpenseDeleter
		ExpenseAdder
		MonthTotalReader
	}
)
