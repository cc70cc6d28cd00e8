// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nutrition

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SharedStore is the second cache tier, shared across worker processes.
// Implementations must make Put idempotent: filling the same key twice with
// the same record is always safe.
type SharedStore interface {
	Get(ctx context.Context, key string) (FoodRecord, bool, error)
	Put(ctx context.Context, key string, rec FoodRecord) error
	Close() error
}

// Cache is the two-tier ingredient cache: an in-process LRU in front of an
// optional shared store. Shared-store failures degrade to the LRU only.
type Cache struct {
	lru    *lru.Cache[string, FoodRecord]
	shared SharedStore
}

// NewCache builds a cache with the given LRU capacity. shared may be nil.
func NewCache(size int, shared SharedStore) (*Cache, error) {
	if size <= 0 {
		size = 512
	}
	l, err := lru.New[string, FoodRecord](size)
	if err != nil {
		return nil, fmt.Errorf("creating ingredient cache: %w", err)
	}
	return &Cache{lru: l, shared: shared}, nil
}

// Get checks the LRU, then the shared store. A shared-store hit is promoted
// into the LRU. Shared-store read errors are treated as misses.
func (c *Cache) Get(ctx context.Context, key string) (FoodRecord, bool) {
	if rec, ok := c.lru.Get(key); ok {
		return rec, true
	}
	if c.shared == nil {
		return FoodRecord{}, false
	}
	rec, ok, err := c.shared.Get(ctx, key)
	if err != nil || !ok {
		return FoodRecord{}, false
	}
	c.lru.Add(key, rec)
	return rec, true
}

// Put fills both tiers. The shared write is best-effort.
func (c *Cache) Put(ctx context.Context, key string, rec FoodRecord) {
	c.lru.Add(key, rec)
	if c.shared != nil {
		_ = c.shared.Put(ctx, key, rec)
	}
}

// Close releases the shared tier, if any.
func (c *Cache) Close() error {
	if c.shared == nil {
		return nil
	}
	return c.shared.Close()
}
