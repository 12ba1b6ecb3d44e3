package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache implements a two-level cache (L1: memory, L2: shared store such as Redis).
type LayeredCache struct {
	l1    *MemoryCache
	l2    Service
	l1TTL time.Duration
}

// NewLayeredCache creates a layered cache. Entries promoted from L2 live in L1 for l1TTL.
func NewLayeredCache(l1 *MemoryCache, l2 Service, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (lc *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// Write-through: shared store first, then memory
	if err := lc.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = lc.l1.SetBytes(ctx, key, value, ttl)
	return nil
}

func (lc *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if b, err := lc.l1.GetBytes(ctx, key); err == nil {
		return b, nil
	}

	b, err := lc.l2.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	_ = lc.l1.SetBytes(ctx, key, b, lc.l1TTL)
	return b, nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	return lc.l2.Close()
}
