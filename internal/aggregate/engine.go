// Package aggregate builds the per-category monthly chart series. One fetch
// is issued per category; results are joined, bucketed to the current
// month, summed and rounded.
package aggregate

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"expenseview/internal/core"
	"expenseview/internal/log"
	"expenseview/internal/session"
	"expenseview/internal/source"
)

// DefaultMaxConcurrency bounds the number of in-flight category fetches.
const DefaultMaxConcurrency = 8

// Config tunes an Engine. Zero values pick the defaults.
type Config struct {
	Clock          Clock
	MaxConcurrency int
	Logger         *log.Logger
}

// Engine owns the published chart series. Passes may overlap; the most
// recently issued pass that completes wins and older passes are dropped.
type Engine struct {
	categories source.CategoryLister
	expenses   source.ExpenseFetcher
	clock      Clock
	limit      int
	logger     *log.Logger

	issued atomic.Uint64

	mu        sync.Mutex // serialises publish
	published uint64
	points    atomic.Pointer[[]core.CategoryTotal]
}

// NewEngine returns an Engine reading categories and expenses from the
// given ports.
func NewEngine(categories source.CategoryLister, expenses source.ExpenseFetcher, cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	e := &Engine{
		categories: categories,
		expenses:   expenses,
		clock:      cfg.Clock,
		limit:      cfg.MaxConcurrency,
		logger:     cfg.Logger.WithComponent(log.ComponentAggregate),
	}
	empty := []core.CategoryTotal{}
	e.points.Store(&empty)
	return e
}

// Refresh runs one aggregation pass for the gate's current person and
// returns the series published afterwards.
//
// The identity check happens before any fetch. A failed category list or a
// failed per-category fetch degrades to empty data instead of an error; the
// only errors are ErrNoIdentity and context cancellation, and in both cases
// the published series is left untouched.
func (e *Engine) Refresh(ctx context.Context, gate session.Gate) ([]core.CategoryTotal, error) {
	person, err := session.Require(gate)
	if err != nil {
		return nil, err
	}

	gen := e.issued.Add(1)
	now := e.clock.Now()
	logger := e.logger.With(log.FieldPassID, uuid.NewString(), log.FieldPersonID, person.ID)

	categories, err := e.categories.Categories(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Category list unavailable, publishing empty series", log.FieldError, err)
		categories = nil
	}

	results := make([][]core.Expense, len(categories))
	var g errgroup.Group
	g.SetLimit(e.limit)
	for i, category := range categories {
		g.Go(func() error {
			items, err := e.expenses.FetchByCategory(ctx, category, person.ID)
			if err != nil {
				logger.WarnContext(ctx, "Category fetch failed, counting it as empty",
					log.FieldCategory, category, log.FieldError, err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totals := Summarize(categories, results, now)
	if !e.publish(gen, totals) {
		logger.DebugContext(ctx, "Discarding superseded aggregation pass")
	} else {
		logger.InfoContext(ctx, "Published category totals", log.FieldCount, len(totals))
	}
	return e.Current(), nil
}

// Current returns a copy of the published series. It is empty, never nil,
// before the first pass.
func (e *Engine) Current() []core.CategoryTotal {
	return slices.Clone(*e.points.Load())
}

func (e *Engine) publish(gen uint64, totals []core.CategoryTotal) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen < e.published {
		return false
	}
	e.published = gen
	e.points.Store(&totals)
	return true
}

// Summarize turns per-category fetch results into chart points. results[i]
// holds the expenses of categories[i]; a nil entry is an empty or failed
// fetch. Only expenses in now's month count, totals are rounded to cents,
// non-positive totals are dropped, and the rest sort ascending by value
// with ties kept in category order.
func Summarize(categories []string, results [][]core.Expense, now time.Time) []core.CategoryTotal {
	out := make([]core.CategoryTotal, 0, len(categories))
	for i, category := range categories {
		var items []core.Expense
		if i < len(results) {
			items = results[i]
		}
		total := core.RoundCurrency(core.SumPrices(CurrentMonth(items, now)))
		if !total.IsPositive() {
			continue
		}
		out = append(out, core.CategoryTotal{Label: category, Value: total})
	}
	slices.SortStableFunc(out, func(a, b core.CategoryTotal) int {
		return a.Value.Cmp(b.Value)
	})
	return out
}
