package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/m-2-h/TextSecure-Server/internal/storage"
)

// CachedBlockList is a decorator that adds read-aside caching to any
// BlockList.
type CachedBlockList struct {
	realStore storage.BlockList
	cache     CacheClient
	ttl       time.Duration
}

var _ storage.BlockList = (*CachedBlockList)(nil)

func NewCachedBlockList(realStore storage.BlockList, cache CacheClient, ttl time.Duration) *CachedBlockList {
	return &CachedBlockList{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

func (s *CachedBlockList) Lookup(ctx context.Context, blockedNumber, accountNumber string) (storage.BlockStatus, error) {
	key := s.cacheKey(blockedNumber, accountNumber)
	var cached storage.BlockStatus

	// 1. Try cache.
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	// 2. Fall back to the real store.
	fresh, err := s.realStore.Lookup(ctx, blockedNumber, accountNumber)
	if err != nil {
		return storage.BlockStatus{}, err
	}

	// 3. Populate cache, fire and forget. Caching is an optimization, not a
	// transaction; if Redis is down we just serve from the database.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)

	return fresh, nil
}

func (s *CachedBlockList) cacheKey(blockedNumber, accountNumber string) string {
	return fmt.Sprintf("block:%s:%s", blockedNumber, accountNumber)
}
