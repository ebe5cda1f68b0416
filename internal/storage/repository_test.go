package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expenseview/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func price(s string) decimal.NullDecimal {
	return core.NewPrice(decimal.RequireFromString(s))
}

func TestMigrationsSeedCategories(t *testing.T) {
	repo := newTestRepo(t)
	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 5 || cats[0] != "Food" {
		t.Fatalf("unexpected seeded categories: %v", cats)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	if _, err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	version, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected schema version 1, got %d", version)
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, err := repo.CreateExpense(ctx, core.Expense{
		Category:    "Books",
		Price:       price("19.999"),
		Description: "novel",
		Date:        core.NewDate(2025, 6, 3),
	}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if saved.ID == 0 || saved.PersonID != 1 {
		t.Fatalf("unexpected saved expense: %+v", saved)
	}
	if saved.Price.Decimal.String() != "19.999" {
		t.Fatalf("price should round-trip exactly, got %s", saved.Price.Decimal)
	}

	if _, err := repo.CreateExpense(ctx, core.Expense{Category: "Food"}, 1); err != nil {
		t.Fatalf("create without price: %v", err)
	}
	if _, err := repo.CreateExpense(ctx, core.Expense{Category: "Food", Price: price("1")}, 2); err != nil {
		t.Fatalf("create for other person: %v", err)
	}

	all, err := repo.ListExpenses(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 expenses for person 1, got %d", len(all))
	}
	if all[1].Price.Valid || !all[1].Date.IsZero() {
		t.Fatalf("absent price and date should stay absent: %+v", all[1])
	}

	books, err := repo.ListExpensesByCategory(ctx, 1, "Books")
	if err != nil || len(books) != 1 {
		t.Fatalf("unexpected books: %v err=%v", books, err)
	}

	cats, _ := repo.ListCategories(ctx)
	if cats[len(cats)-1] != "Books" {
		t.Fatalf("new category should be recorded: %v", cats)
	}
}

func TestMonthTotal(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, e := range []core.Expense{
		{Category: "Food", Price: price("10.10"), Date: core.NewDate(2025, 6, 1)},
		{Category: "Food", Price: price("0.25"), Date: core.NewDate(2025, 6, 30)},
		{Category: "Food", Price: price("99"), Date: core.NewDate(2025, 5, 31)},
		{Category: "Food", Price: price("7"), Date: core.NewDate(2024, 6, 1)},
	} {
		if _, err := repo.CreateExpense(ctx, e, 1); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	total, err := repo.MonthTotal(ctx, 1, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("month total: %v", err)
	}
	if total.String() != "10.35" {
		t.Fatalf("expected 10.35, got %s", total)
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	saved, err := repo.CreateExpense(ctx, core.Expense{Category: "Food", Price: price("1")}, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.SoftDeleteExpense(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.SoftDeleteExpense(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	if _, err := repo.GetExpense(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted expense should be hidden, got %v", err)
	}
	all, _ := repo.ListExpenses(ctx, 1)
	if len(all) != 0 {
		t.Fatalf("deleted expense still listed: %v", all)
	}
}
