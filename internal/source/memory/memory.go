package memory

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"expenseview/internal/aggregate"
	"expenseview/internal/core"
	"expenseview/internal/source"
)

var _ source.Source = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	cats   []string
	items  []core.Expense
	nextID int64
	clock  aggregate.Clock
}

func New(cats []string, items []core.Expense) *Store {
	s := &Store{cats: dedupe(cats), clock: aggregate.SystemClock{}}
	for _, e := range items {
		if e.ID == 0 {
			s.nextID++
			e.ID = s.nextID
		} else if e.ID > s.nextID {
			s.nextID = e.ID
		}
		s.items = append(s.items, e)
	}
	return s
}

// WithClock sets the clock used for the month total.
func (s *Store) WithClock(c aggregate.Clock) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
	return s
}

// NewFromFiles seeds a store from seed_categories.txt and seed_expenses.csv
// in base. Missing files fall back to a small default category list and no
// expenses.
func NewFromFiles(base string) (*Store, error) {
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []string{"Food", "Rent", "Transport"}
	}
	items, err := readExpenses(filepath.Join(base, "seed_expenses.csv"))
	if err != nil {
		return nil, err
	}
	return New(cats, items), nil
}

func (s *Store) FetchAll(_ context.Context, personID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		if e.PersonID == personID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) FetchByCategory(_ context.Context, category string, personID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if e.PersonID == personID && e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

// Categories returns the known categories in seed order.
func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cats...), nil
}

// Add stores the expense and assigns it the next id. Unknown categories are
// appended to the category list.
func (s *Store) Add(_ context.Context, e core.Expense, personID int64) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	e.PersonID = personID
	s.items = append(s.items, e)
	if !slices.Contains(s.cats, e.Category) {
		s.cats = append(s.cats, e.Category)
	}
	return e, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.items {
		if e.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %d: %w", id, source.ErrNotFound)
}

func (s *Store) CurrentMonthTotal(_ context.Context, personID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mine []core.Expense
	for _, e := range s.items {
		if e.PersonID == personID {
			mine = append(mine, e)
		}
	}
	return core.SumPrices(aggregate.CurrentMonth(mine, s.clock.Now())), nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// readExpenses parses rows of personId,category,price,description,date. A
// header row and blank prices are allowed; a missing file yields no rows.
func readExpenses(path string) ([]core.Expense, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed expenses: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = 5
	r.TrimLeadingSpace = true

	var out []core.Expense
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read seed expenses: %w", err)
		}
		if line == 1 && strings.EqualFold(rec[0], "personId") {
			continue
		}
		e, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("seed expenses line %d: %w", line, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRecord(rec []string) (core.Expense, error) {
	personID, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return core.Expense{}, fmt.Errorf("person id %q: %w", rec[0], err)
	}
	e := core.Expense{
		PersonID:    personID,
		Category:    strings.TrimSpace(rec[1]),
		Description: strings.TrimSpace(rec[3]),
	}
	if p := strings.TrimSpace(rec[2]); p != "" {
		amount, err := core.ParseAmount(p)
		if err != nil {
			return core.Expense{}, fmt.Errorf("price %q: %w", p, err)
		}
		e.Price = core.NewPrice(amount)
	}
	if e.Date, err = core.ParseDate(rec[4]); err != nil {
		return core.Expense{}, fmt.Errorf("date %q: %w", rec[4], err)
	}
	return e, nil
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
