package listing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"expenseview/internal/core"
)

func priced(id int64, price string) core.Expense {
	return core.Expense{ID: id, Category: "food", Price: core.NewPrice(decimal.RequireFromString(price))}
}

func ids(items []core.Expense) []int64 {
	out := make([]int64, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}

func TestSortByPriceToggles(t *testing.T) {
	items := []core.Expense{priced(1, "30"), priced(2, "10"), priced(3, "20")}
	s := NewSorter(NewResolver(language.English))

	s.Apply(items)
	assert.Equal(t, []int64{2, 3, 1}, ids(items))

	// Default column is price, so the first click flips to descending.
	state := s.SortBy(items, ColumnPrice)
	assert.False(t, state.Ascending)
	assert.Equal(t, []int64{1, 3, 2}, ids(items))

	state = s.SortBy(items, ColumnPrice)
	assert.True(t, state.Ascending)
	assert.Equal(t, []int64{2, 3, 1}, ids(items))
}

func TestSortStability(t *testing.T) {
	items := []core.Expense{
		priced(1, "5"), priced(2, "1"), priced(3, "5"), priced(4, "1"), priced(5, "5"),
	}
	Sort(items, NewResolver(language.English), SortState{Column: ColumnPrice, Ascending: true})
	assert.Equal(t, []int64{2, 4, 1, 3, 5}, ids(items))

	Sort(items, NewResolver(language.English), SortState{Column: ColumnPrice, Ascending: false})
	assert.Equal(t, []int64{1, 3, 5, 2, 4}, ids(items))
}

func TestSortUnknownColumnKeepsOrder(t *testing.T) {
	items := []core.Expense{priced(3, "1"), priced(1, "2"), priced(2, "3")}
	s := NewSorter(NewResolver(language.English))
	state := s.SortBy(items, Column("description"))

	assert.Equal(t, Column("description"), state.Column)
	assert.True(t, state.Ascending)
	assert.Equal(t, []int64{3, 1, 2}, ids(items))
}

func TestSwitchingColumnResetsToAscending(t *testing.T) {
	s := NewSorter(NewResolver(language.English))
	items := []core.Expense{}
	s.SortBy(items, ColumnPrice) // price desc
	state := s.SortBy(items, ColumnDate)
	assert.Equal(t, SortState{Column: ColumnDate, Ascending: true}, state)
}

func TestSortByCategoryUsesCollation(t *testing.T) {
	mk := func(id int64, cat string) core.Expense {
		return core.Expense{ID: id, Category: cat, Price: core.NewPrice(decimal.NewFromInt(1))}
	}
	items := []core.Expense{mk(1, "Zoo"), mk(2, "éclair"), mk(3, "apple"), mk(4, "Eggs")}
	Sort(items, NewResolver(language.English), SortState{Column: ColumnCategory, Ascending: true})

	// Raw byte order would put "Eggs" and "Zoo" before the lower-case names
	// and "éclair" last.
	assert.Equal(t, []int64{3, 2, 4, 1}, ids(items))
}

func TestSortByDateUsesCalendarDay(t *testing.T) {
	items := []core.Expense{
		{ID: 1, Date: core.NewDate(2025, 3, 2)},
		{ID: 2, Date: core.NewDate(2024, 12, 31)},
		{ID: 3, Date: core.NewDate(2025, 1, 15)},
	}
	Sort(items, NewResolver(language.English), SortState{Column: ColumnDate, Ascending: true})
	assert.Equal(t, []int64{2, 3, 1}, ids(items))
}

func TestAbsentKeysSortFirstInBothDirections(t *testing.T) {
	r := NewResolver(language.English)
	missing := core.Expense{ID: 9, Category: "food"}
	present := priced(1, "10")

	for _, asc := range []bool{true, false} {
		cmp := r.ResolveDirected(ColumnPrice, asc)
		assert.Equal(t, -1, cmp(missing, present), "absent left, ascending=%v", asc)
		assert.Equal(t, 1, cmp(present, missing), "absent right, ascending=%v", asc)
	}

	items := []core.Expense{priced(1, "10"), missing, priced(2, "5")}
	Sort(items, r, SortState{Column: ColumnPrice, Ascending: false})
	require.Len(t, items, 3)
	assert.Equal(t, int64(9), items[0].ID)
	assert.Equal(t, []int64{9, 1, 2}, ids(items))
}

func TestSortStateString(t *testing.T) {
	assert.Equal(t, "price:asc", DefaultSortState().String())
	assert.Equal(t, "date:desc", SortState{Column: ColumnDate}.String())
}

func TestParseColumn(t *testing.T) {
	assert.Equal(t, ColumnCategory, ParseColumn(" Category "))
	assert.True(t, ParseColumn("DATE").Known())
	assert.False(t, ParseColumn("description").Known())
}
