// Package view holds the presentation state behind the expense table and
// the monthly dashboard: ordering, paging, status banners and the published
// chart series.
package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"expenseview/internal/core"
	"expenseview/internal/listing"
	"expenseview/internal/log"
	"expenseview/internal/session"
	"expenseview/internal/source"
)

const (
	msgFetchFailed    = "Error fetching expenses."
	msgDeleted        = "Expense deleted successfully!"
	msgDeleteFailed   = "Error deleting expense. Please try again."
	msgMissingExpense = "Expense ID is undefined or null"
)

// ErrMissingID is returned by DeleteByID for an expense without an id.
var ErrMissingID = errors.New("expense id is undefined")

// ListConfig tunes an ExpenseList. Zero values pick the defaults.
type ListConfig struct {
	PageSize int
	Locale   string
	Status   *Status
	Logger   *log.Logger
}

// PageInfo describes the visible window of the table.
type PageInfo struct {
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
	PageSize   int               `json:"pageSize"`
	Count      int               `json:"count"`
	Sort       listing.SortState `json:"sort"`
}

// ExpenseList is the full expense table of the logged-in person. All
// operations are serialised, so a sort or page change always derives from
// the collection as it is after any earlier delete.
type ExpenseList struct {
	fetcher source.ExpenseFetcher
	deleter source.ExpenseDeleter
	gate    session.Gate
	status  *Status
	logger  *log.Logger
	audit   *log.StructuredLogger

	mu     sync.Mutex
	items  []core.Expense
	sorter *listing.Sorter
	page   listing.PageState
	// gen advances on every load and delete; a load only publishes if
	// nothing else changed the collection while it was fetching.
	gen    uint64
}

// NewExpenseList returns an empty list sorted by price ascending on page 1.
func NewExpenseList(fetcher source.ExpenseFetcher, deleter source.ExpenseDeleter, gate session.Gate, cfg ListConfig) *ExpenseList {
	if cfg.Status == nil {
		cfg.Status = NewStatus(DefaultStatusDelay)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	logger := cfg.Logger.WithComponent(log.ComponentView)
	return &ExpenseList{
		fetcher: fetcher,
		deleter: deleter,
		gate:    gate,
		status:  cfg.Status,
		logger:  logger,
		audit:   log.NewStructuredLogger(logger),
		items:   []core.Expense{},
		sorter:  listing.NewSorter(listing.NewResolverForLocale(cfg.Locale)),
		page:    listing.NewPageState(cfg.PageSize),
	}
}

// Status returns the banner this list reports to.
func (l *ExpenseList) Status() *Status { return l.status }

// Load replaces the collection with the person's expenses, ordered by the
// current sort state, and moves to page 1. A failed fetch leaves an empty
// table and an error banner. A load overtaken by a later load or delete is
// dropped.
func (l *ExpenseList) Load(ctx context.Context) error {
	person, err := session.Require(l.gate)
	if err != nil {
		l.status.Error(session.NoIdentityMessage)
		return err
	}

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	items, err := l.fetcher.FetchAll(ctx, person.ID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		l.logger.WarnContext(ctx, "Expense fetch failed, showing empty table",
			log.FieldOperation, log.OpLoad, log.FieldPersonID, person.ID, log.FieldError, err)
		l.status.Error(msgFetchFailed)
		items = nil
	}
	items = append([]core.Expense{}, items...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		l.logger.DebugContext(ctx, "Discarding superseded expense load",
			log.FieldOperation, log.OpLoad, log.FieldPersonID, person.ID)
		return nil
	}
	l.sorter.Apply(items)
	l.items = items
	l.page = l.page.Reset()

	l.logger.DebugContext(ctx, "Expenses loaded",
		log.FieldOperation, log.OpLoad, log.FieldCount, len(items), log.FieldPersonID, person.ID)
	return nil
}

// SortBy applies a click on the column header col. Clicking the active
// column flips the direction. The current page is kept.
func (l *ExpenseList) SortBy(col listing.Column) listing.SortState {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := l.sorter.SortBy(l.items, col)
	l.logger.Debug("Table sorted", log.FieldColumn, string(state.Column), log.FieldAscending, state.Ascending)
	return state
}

// ChangePage moves to page n, clamped to the valid range.
func (l *ExpenseList) ChangePage(n int) PageInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.page = l.page.SetPage(n, listing.TotalPages(len(l.items), l.page.PageSize))
	return l.info()
}

// DeleteByID deletes the expense remotely and, on success, removes it from
// the table and moves to page 1.
func (l *ExpenseList) DeleteByID(ctx context.Context, id int64) error {
	if id == 0 {
		l.logger.ErrorContext(ctx, msgMissingExpense, log.FieldOperation, log.OpDelete)
		return ErrMissingID
	}
	person, err := session.Require(l.gate)
	if err != nil {
		l.status.Error(session.NoIdentityMessage)
		return err
	}

	if err := l.deleter.Delete(ctx, id); err != nil {
		l.logger.ErrorContext(ctx, "Failed to delete expense",
			log.FieldOperation, log.OpDelete, log.FieldExpenseID, id, log.FieldError, err)
		l.status.Error(msgDeleteFailed)
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	l.mu.Lock()
	l.items = slices.DeleteFunc(l.items, func(e core.Expense) bool { return e.ID == id })
	l.page = l.page.Reset()
	l.gen++
	l.mu.Unlock()

	l.audit.LogExpenseDeleted(ctx, person.ID, id)
	l.status.Success(msgDeleted)
	return nil
}

// CurrentPageView returns a copy of the rows on the current page.
func (l *ExpenseList) CurrentPageView() []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(listing.GetPage(l.items, l.page))
}

// Info returns the current paging and sort state.
func (l *ExpenseList) Info() PageInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.info()
}

// Snapshot returns a copy of the whole ordered collection.
func (l *ExpenseList) Snapshot() []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

func (l *ExpenseList) info() PageInfo {
	return PageInfo{
		Page:       l.page.CurrentPage,
		TotalPages: listing.TotalPages(len(l.items), l.page.PageSize),
		PageSize:   l.page.PageSize,
		Count:      len(l.items),
		Sort:       l.sorter.State(),
	}
}
