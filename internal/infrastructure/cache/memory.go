// Package cache holds the single-slot stores for the latest bulk result.
package cache

import (
	"context"
	"sync/atomic"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// MemoryCache keeps the latest bulk result in process memory.
type MemoryCache struct {
	latest atomic.Pointer[model.CachedTable]
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Put replaces the cached entry.
func (c *MemoryCache) Put(_ context.Context, entry model.CachedTable) error {
	entry.Data = append([]byte(nil), entry.Data...)
	c.latest.Store(&entry)
	return nil
}

// Latest returns the cached entry or model.ErrNoCacheAvailable.
func (c *MemoryCache) Latest(_ context.Context) (model.CachedTable, error) {
	entry := c.latest.Load()
	if entry == nil {
		return model.CachedTable{}, model.ErrNoCacheAvailable
	}
	return *entry, nil
}

// Close drops the cached entry.
func (c *MemoryCache) Close(_ context.Context) error {
	c.latest.Store(nil)
	return nil
}
