package source

import (
	"context"
	"slices"

	"expenseview/internal/cache"
)

const categoriesKey = "categories"

// Cached decorates a Source, caching the category list. Everything else
// passes straight through.
type Cached struct {
	Source
	categories cache.Cache[[]string]
}

// NewCached wraps src with the given cache.
func NewCached(src Source, c cache.Cache[[]string]) *Cached {
	return &Cached{Source: src, categories: c}
}

// Categories returns the cached list when present. Failures are never
// cached.
func (c *Cached) Categories(ctx context.Context) ([]string, error) {
	if v, ok := c.categories.Get(categoriesKey); ok {
		return slices.Clone(v), nil
	}
	v, err := c.Source.Categories(ctx)
	if err != nil {
		return nil, err
	}
	c.categories.Set(categoriesKey, slices.Clone(v))
	return v, nil
}

// InvalidateCategories drops the cached list so the next read refetches it.
func (c *Cached) InvalidateCategories() {
	c.categories.Delete(categoriesKey)
}
