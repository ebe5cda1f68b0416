package listing

import (
	"fmt"
	"slices"

	"expenseview/internal/core"
)

// SortState is the active column and direction of one table.
type SortState struct {
	Column    Column `json:"column"`
	Ascending bool   `json:"ascending"`
}

// DefaultSortState returns the initial ordering: price, ascending.
func DefaultSortState() SortState {
	return SortState{Column: ColumnPrice, Ascending: true}
}

// Toggle applies a column click. Clicking the active column flips the
// direction; any other column becomes active in ascending order.
func (s SortState) Toggle(col Column) SortState {
	if col == s.Column {
		return SortState{Column: col, Ascending: !s.Ascending}
	}
	return SortState{Column: col, Ascending: true}
}

// String returns the state as "column:asc" or "column:desc".
func (s SortState) String() string {
	dir := "asc"
	if !s.Ascending {
		dir = "desc"
	}
	return fmt.Sprintf("%s:%s", s.Column, dir)
}

// Sorter owns the sort state of one table and reorders its collection.
// It is not safe for concurrent use; the owning view serialises calls.
type Sorter struct {
	state    SortState
	resolver *Resolver
}

// NewSorter returns a Sorter in the default state.
func NewSorter(resolver *Resolver) *Sorter {
	return &Sorter{state: DefaultSortState(), resolver: resolver}
}

// State returns the current sort state.
func (s *Sorter) State() SortState {
	return s.state
}

// SortBy records a click on col and reorders items in place.
func (s *Sorter) SortBy(items []core.Expense, col Column) SortState {
	s.state = s.state.Toggle(col)
	s.Apply(items)
	return s.state
}

// Apply reorders items in place by the current state without toggling.
func (s *Sorter) Apply(items []core.Expense) {
	Sort(items, s.resolver, s.state)
}

// Sort stably orders the full collection in place. Records that compare
// equal keep their relative input order.
func Sort(items []core.Expense, resolver *Resolver, state SortState) {
	slices.SortStableFunc(items, resolver.ResolveDirected(state.Column, state.Ascending))
}
