package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expenseview/internal/aggregate"
	"expenseview/internal/core"
	"expenseview/internal/source"
)

func price(s string) decimal.NullDecimal {
	return core.NewPrice(decimal.RequireFromString(s))
}

func TestStoreAddFetchDelete(t *testing.T) {
	ctx := context.Background()
	s := New([]string{"Food", "Rent", "Food"}, nil)

	cats, err := s.Categories(ctx)
	if err != nil || len(cats) != 2 {
		t.Fatalf("unexpected categories: %v err=%v", cats, err)
	}

	saved, err := s.Add(ctx, core.Expense{Category: "Fun", Price: price("3.50")}, 9)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if saved.ID != 1 || saved.PersonID != 9 {
		t.Fatalf("unexpected saved expense: %+v", saved)
	}
	if cats, _ := s.Categories(ctx); len(cats) != 3 || cats[2] != "Fun" {
		t.Fatalf("new category not recorded: %v", cats)
	}

	if _, err := s.Add(ctx, core.Expense{Category: "Fun"}, 9); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	mine, _ := s.FetchAll(ctx, 9)
	others, _ := s.FetchAll(ctx, 10)
	if len(mine) != 1 || len(others) != 0 {
		t.Fatalf("unexpected ownership filter: mine=%v others=%v", mine, others)
	}
	fun, _ := s.FetchByCategory(ctx, "Fun", 9)
	food, _ := s.FetchByCategory(ctx, "Food", 9)
	if len(fun) != 1 || len(food) != 0 {
		t.Fatalf("unexpected category filter: fun=%v food=%v", fun, food)
	}

	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, saved.ID); !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreCurrentMonthTotal(t *testing.T) {
	now := time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC)
	s := New(nil, []core.Expense{
		{PersonID: 1, Category: "Food", Price: price("10.10"), Date: core.NewDate(2025, 3, 1)},
		{PersonID: 1, Category: "Food", Price: price("5"), Date: core.NewDate(2025, 2, 28)},
		{PersonID: 1, Category: "Rent", Date: core.NewDate(2025, 3, 2)},
		{PersonID: 2, Category: "Food", Price: price("99"), Date: core.NewDate(2025, 3, 3)},
	}).WithClock(aggregate.FixedClock{At: now})

	total, err := s.CurrentMonthTotal(context.Background(), 1)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("10.10")) {
		t.Fatalf("expected 10.10, got %s", total)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("missing files should not fail: %v", err)
	}
	if cats, _ := s.Categories(context.Background()); len(cats) == 0 {
		t.Fatalf("expected default categories when files are missing")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("seed_categories.txt", "# header\nFood\nRent\nFood\n\n")
	mustWrite("seed_expenses.csv", "personId,category,price,description,date\n"+
		"1,Food,\"12,50\",lunch,2025-03-01\n"+
		"1,Rent,,unknown price,\n"+
		"# skipped\n"+
		"2,Food,4,coffee,2025-03-02\n")

	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	cats, _ := s.Categories(context.Background())
	if len(cats) != 2 || cats[0] != "Food" || cats[1] != "Rent" {
		t.Fatalf("unexpected categories: %v", cats)
	}
	items, _ := s.FetchAll(context.Background(), 1)
	if len(items) != 2 {
		t.Fatalf("expected 2 seeded expenses, got %d", len(items))
	}
	if items[0].ID != 1 || !items[0].Price.Decimal.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected first row: %+v", items[0])
	}
	if items[1].Price.Valid || !items[1].Date.IsZero() {
		t.Fatalf("blank price and date should stay absent: %+v", items[1])
	}
}

func TestNewFromFilesRejectsBadRows(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_expenses.csv"), []byte("1,Food,abc,x,2025-01-01\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected an error for a malformed price")
	}
}
