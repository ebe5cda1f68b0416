package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		count, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{23, 10, 3},
		{23, 0, 3}, // falls back to the default size
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.count, tt.size), "TotalPages(%d, %d)", tt.count, tt.size)
	}
}

func TestGetPageWindows(t *testing.T) {
	items := seq(23)
	p := NewPageState(10)

	assert.Len(t, GetPage(items, p.SetPage(1, 3)), 10)
	assert.Len(t, GetPage(items, p.SetPage(2, 3)), 10)
	assert.Equal(t, []int{20, 21, 22}, GetPage(items, p.SetPage(3, 3)))

	beyond := GetPage(items, PageState{CurrentPage: 4, PageSize: 10})
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)
}

func TestGetPageEmptyCollection(t *testing.T) {
	var items []int
	got := GetPage(items, NewPageState(10))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPaginationCoverage(t *testing.T) {
	for n := 0; n <= 35; n++ {
		for size := 1; size <= 12; size++ {
			items := seq(n)
			total := TotalPages(n, size)
			var joined []int
			for page := 1; page <= total; page++ {
				joined = append(joined, GetPage(items, PageState{CurrentPage: page, PageSize: size})...)
			}
			if n == 0 {
				assert.Empty(t, joined)
				continue
			}
			assert.Equal(t, items, joined, "n=%d size=%d", n, size)
		}
	}
}

func TestSetPageClamps(t *testing.T) {
	p := NewPageState(10)
	assert.Equal(t, 1, p.SetPage(0, 3).CurrentPage)
	assert.Equal(t, 1, p.SetPage(-5, 3).CurrentPage)
	assert.Equal(t, 3, p.SetPage(9, 3).CurrentPage)
	assert.Equal(t, 2, p.SetPage(2, 3).CurrentPage)
	assert.Equal(t, 1, p.SetPage(2, 0).CurrentPage)
}

func TestResetAndDefaults(t *testing.T) {
	p := NewPageState(0)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, 1, p.SetPage(3, 5).Reset().CurrentPage)
}
