package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseview/internal/cache"
	"expenseview/internal/source"
	"expenseview/internal/source/memory"
)

type countingSource struct {
	*memory.Store
	calls int
	err   error
}

func (c *countingSource) Categories(ctx context.Context) ([]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.Store.Categories(ctx)
}

func TestCachedCategories(t *testing.T) {
	ctx := context.Background()
	inner := &countingSource{Store: memory.New([]string{"Food", "Rent"}, nil)}
	c := source.NewCached(inner, cache.NewLRUCache[[]string](4, time.Minute))

	first, err := c.Categories(ctx)
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Rent"}, second)
	assert.Equal(t, 1, inner.calls)

	c.InvalidateCategories()
	_, err = c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedCategoriesDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := &countingSource{Store: memory.New([]string{"Food"}, nil), err: errors.New("down")}
	c := source.NewCached(inner, cache.NewLRUCache[[]string](4, time.Minute))

	_, err := c.Categories(ctx)
	require.Error(t, err)

	inner.err = nil
	got, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food"}, got)
	assert.Equal(t, 2, inner.calls)
}
