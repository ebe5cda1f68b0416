// Package listing orders and windows the expense table: column comparators,
// the stable sort engine, and page arithmetic.
package listing

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"expenseview/internal/core"
)

// Column identifies a sortable table column.
type Column string

const (
	ColumnPrice    Column = "price"
	ColumnCategory Column = "category"
	ColumnDate     Column = "date"
)

// ParseColumn normalises a column name coming from a request. Unknown names
// are kept as is; they resolve to the all-equal comparator.
func ParseColumn(s string) Column {
	return Column(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether c has a typed comparator.
func (c Column) Known() bool {
	switch c {
	case ColumnPrice, ColumnCategory, ColumnDate:
		return true
	default:
		return false
	}
}

// Comparator is a three-way compare over two expenses for one column.
// It returns a negative number when a orders first.
type Comparator func(a, b core.Expense) int

// column describes how one column reads and orders its key.
type column struct {
	absent  func(e core.Expense) bool
	compare func(a, b core.Expense) int
}

// Resolver maps column identifiers to comparators. It holds a collator,
// which is not safe for concurrent use, so a Resolver belongs to one sorter.
type Resolver struct {
	collator *collate.Collator
}

// NewResolver returns a Resolver collating categories for the given locale.
func NewResolver(tag language.Tag) *Resolver {
	return &Resolver{collator: collate.New(tag)}
}

// NewResolverForLocale parses a BCP 47 locale string and falls back to
// English when it cannot be parsed.
func NewResolverForLocale(locale string) *Resolver {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return NewResolver(tag)
}

// Resolve returns the ascending comparator for col.
func (r *Resolver) Resolve(col Column) Comparator {
	return r.ResolveDirected(col, true)
}

// ResolveDirected returns the comparator for col in the given direction.
//
// Absent keys short-circuit before direction is applied: if a's key is
// absent a orders first, otherwise if b's key is absent b orders first.
// Flipping the direction therefore never moves absent records to the
// other end.
func (r *Resolver) ResolveDirected(col Column, ascending bool) Comparator {
	c := r.column(col)
	return func(a, b core.Expense) int {
		if c.absent(a) {
			return -1
		}
		if c.absent(b) {
			return 1
		}
		n := c.compare(a, b)
		if !ascending {
			n = -n
		}
		return n
	}
}

func (r *Resolver) column(col Column) column {
	switch col {
	case ColumnPrice:
		return column{
			absent: func(e core.Expense) bool { return !e.Price.Valid },
			compare: func(a, b core.Expense) int {
				return a.Price.Decimal.Cmp(b.Price.Decimal)
			},
		}
	case ColumnCategory:
		return column{
			absent: func(e core.Expense) bool { return e.Category == "" },
			compare: func(a, b core.Expense) int {
				return r.collator.CompareString(a.Category, b.Category)
			},
		}
	case ColumnDate:
		return column{
			absent: func(e core.Expense) bool { return e.Date.IsZero() },
			compare: func(a, b core.Expense) int {
				return core.CompareDays(a.Date, b.Date)
			},
		}
	default:
		// Unrecognised columns read "" on both sides.
		return column{
			absent: func(core.Expense) bool { return false },
			compare: func(core.Expense, core.Expense) int {
				return strings.Compare("", "")
			},
		}
	}
}
