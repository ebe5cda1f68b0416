package aggregate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseview/internal/core"
	"expenseview/internal/session"
)

var now = time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)

type stubSource struct {
	mu         sync.Mutex
	categories []string
	catErr     error
	data       map[string][]core.Expense
	failing    map[string]error

	// When set, the first FetchByCategory call signals entered after
	// reading its data and then waits for release.
	entered chan struct{}
	release chan struct{}
	blocked atomic.Bool

	calls atomic.Int32
}

func (s *stubSource) Categories(context.Context) ([]string, error) {
	if s.catErr != nil {
		return nil, s.catErr
	}
	return append([]string(nil), s.categories...), nil
}

func (s *stubSource) FetchAll(context.Context, int64) ([]core.Expense, error) {
	return nil, errors.New("not used")
}

func (s *stubSource) FetchByCategory(ctx context.Context, category string, _ int64) ([]core.Expense, error) {
	s.calls.Add(1)
	s.mu.Lock()
	err := s.failing[category]
	items := append([]core.Expense(nil), s.data[category]...)
	s.mu.Unlock()

	if s.release != nil && s.blocked.CompareAndSwap(false, true) {
		close(s.entered)
		<-s.release
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *stubSource) set(category string, items ...core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string][]core.Expense{}
	}
	s.data[category] = items
}

func spent(price string, d core.Date) core.Expense {
	return core.Expense{Price: core.NewPrice(decimal.RequireFromString(price)), Date: d}
}

func loggedIn(t *testing.T) *session.Store {
	t.Helper()
	s := session.NewStore()
	require.NoError(t, s.Save(core.Person{ID: 42, Role: core.RoleUser, Token: "t"}))
	return s
}

func newEngine(src *stubSource) *Engine {
	return NewEngine(src, src, Config{Clock: FixedClock{At: now}})
}

func values(points []core.CategoryTotal) map[string]string {
	out := map[string]string{}
	for _, p := range points {
		out[p.Label] = p.Value.String()
	}
	return out
}

func TestRefresh_FailedCategoryDoesNotBlockOthers(t *testing.T) {
	src := &stubSource{
		categories: []string{"food", "rent", "fun"},
		failing:    map[string]error{"rent": errors.New("502 bad gateway")},
	}
	thisMonth := core.NewDate(2025, 6, 3)
	src.set("food", spent("20.123", thisMonth), spent("25.333", thisMonth))
	src.set("fun", spent("5", thisMonth))

	points, err := newEngine(src).Refresh(context.Background(), loggedIn(t))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"food": "45.46", "fun": "5"}, values(points))
	assert.Equal(t, "fun", points[0].Label, "ascending by value")
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestRefresh_NoIdentityFetchesNothing(t *testing.T) {
	src := &stubSource{categories: []string{"food"}}
	e := newEngine(src)

	_, err := e.Refresh(context.Background(), session.NewStore())
	assert.ErrorIs(t, err, session.ErrNoIdentity)
	assert.Zero(t, src.calls.Load())
	assert.NotNil(t, e.Current())
	assert.Empty(t, e.Current())
}

func TestRefresh_CategoryListFailureYieldsEmptySeries(t *testing.T) {
	src := &stubSource{catErr: errors.New("unauthorized")}
	e := newEngine(src)

	points, err := e.Refresh(context.Background(), loggedIn(t))
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.Zero(t, src.calls.Load())
}

func TestRefresh_FetchesConcurrently(t *testing.T) {
	categories := []string{"a", "b", "c", "d"}
	var inFlight, peak atomic.Int32
	barrier := make(chan struct{})
	var once sync.Once

	src := &concurrentSource{
		categories: categories,
		fetch: func() {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			if n == int32(len(categories)) {
				once.Do(func() { close(barrier) })
			}
			select {
			case <-barrier:
			case <-time.After(2 * time.Second):
			}
			inFlight.Add(-1)
		},
	}

	e := NewEngine(src, src, Config{Clock: FixedClock{At: now}, MaxConcurrency: len(categories)})
	_, err := e.Refresh(context.Background(), loggedIn(t))
	require.NoError(t, err)
	assert.Equal(t, int32(len(categories)), peak.Load(), "all category fetches should be in flight together")
}

type concurrentSource struct {
	categories []string
	fetch      func()
}

func (s *concurrentSource) Categories(context.Context) ([]string, error) { return s.categories, nil }
func (s *concurrentSource) FetchAll(context.Context, int64) ([]core.Expense, error) {
	return nil, nil
}
func (s *concurrentSource) FetchByCategory(context.Context, string, int64) ([]core.Expense, error) {
	s.fetch()
	return nil, nil
}

func TestRefresh_StalePassIsDiscarded(t *testing.T) {
	src := &stubSource{
		categories: []string{"food"},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	src.set("food", spent("10", core.NewDate(2025, 6, 1)))
	e := newEngine(src)
	gate := loggedIn(t)

	done := make(chan []core.CategoryTotal)
	go func() {
		points, err := e.Refresh(context.Background(), gate)
		assert.NoError(t, err)
		done <- points
	}()

	<-src.entered
	src.set("food", spent("20", core.NewDate(2025, 6, 1)))
	newer, err := e.Refresh(context.Background(), gate)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"food": "20"}, values(newer))

	close(src.release)
	stale := <-done

	assert.Equal(t, map[string]string{"food": "20"}, values(stale))
	assert.Equal(t, map[string]string{"food": "20"}, values(e.Current()))
}

func TestRefresh_CancelledContextKeepsPreviousSeries(t *testing.T) {
	src := &stubSource{categories: []string{"food"}}
	src.set("food", spent("10", core.NewDate(2025, 6, 1)))
	e := newEngine(src)
	gate := loggedIn(t)

	_, err := e.Refresh(context.Background(), gate)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Refresh(ctx, gate)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, map[string]string{"food": "10"}, values(e.Current()))
}

func TestCurrentReturnsCopy(t *testing.T) {
	src := &stubSource{categories: []string{"food"}}
	src.set("food", spent("10", core.NewDate(2025, 6, 1)))
	e := newEngine(src)
	_, err := e.Refresh(context.Background(), loggedIn(t))
	require.NoError(t, err)

	got := e.Current()
	got[0].Label = "mutated"
	assert.Equal(t, "food", e.Current()[0].Label)
}

func TestSummarize(t *testing.T) {
	june := core.NewDate(2025, 6, 30)
	may := core.NewDate(2025, 5, 31)
	lastJune := core.NewDate(2024, 6, 10)

	tests := []struct {
		name       string
		categories []string
		results    [][]core.Expense
		want       []string
	}{
		{
			name:       "no categories",
			categories: nil,
			want:       []string{},
		},
		{
			name:       "other months and years are ignored",
			categories: []string{"food"},
			results:    [][]core.Expense{{spent("3", may), spent("4", lastJune)}},
			want:       []string{},
		},
		{
			name:       "zero total is excluded",
			categories: []string{"food", "gift"},
			results:    [][]core.Expense{{spent("1.5", june)}, {spent("0", june), spent("0.004", june)}},
			want:       []string{"food=1.5"},
		},
		{
			name:       "ascending with ties in category order",
			categories: []string{"c", "a", "b"},
			results:    [][]core.Expense{{spent("9", june)}, {spent("2", june)}, {spent("9", june)}},
			want:       []string{"a=2", "c=9", "b=9"},
		},
		{
			name:       "missing result slot counts as empty",
			categories: []string{"food", "rent"},
			results:    [][]core.Expense{{spent("1", june)}},
			want:       []string{"food=1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.categories, tt.results, now)
			labels := make([]string, len(got))
			for i, p := range got {
				assert.True(t, p.Value.IsPositive())
				labels[i] = p.Label + "=" + p.Value.String()
			}
			assert.Equal(t, tt.want, labels)
		})
	}
}

func TestIsCurrentMonth(t *testing.T) {
	assert.True(t, IsCurrentMonth(core.NewDate(2025, 6, 1), now))
	assert.False(t, IsCurrentMonth(core.NewDate(2025, 7, 1), now))
	assert.False(t, IsCurrentMonth(core.NewDate(2024, 6, 1), now))
	assert.False(t, IsCurrentMonth(core.Date{}, now))
}
