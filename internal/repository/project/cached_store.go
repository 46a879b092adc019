package project

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ashiqtasdid/pegasus-sub000/internal/fixer"
	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

const DefaultCacheSize = 1024

// CachedStore is a read-through LRU over another Store. Fix history is not
// cached.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, types.Project]
}

func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, types.Project](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{next: next, cache: cache}, nil
}

func (c *CachedStore) SaveProject(ctx context.Context, key string, p types.Project) error {
	key = strings.TrimSpace(key)
	if err := c.next.SaveProject(ctx, key, p); err != nil {
		c.cache.Remove(key)
		return err
	}
	c.cache.Add(key, p)
	return nil
}

func (c *CachedStore) GetProject(ctx context.Context, key string) (types.Project, error) {
	key = strings.TrimSpace(key)
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}
	p, err := c.next.GetProject(ctx, key)
	if err != nil {
		return types.Project{}, err
	}
	c.cache.Add(key, p)
	return p, nil
}

func (c *CachedStore) RecordFix(ctx context.Context, rec fixer.AuditRecord) error {
	return c.next.RecordFix(ctx, rec)
}

func (c *CachedStore) ListFixes(ctx context.Context, key string) ([]fixer.AuditRecord, error) {
	return c.next.ListFixes(ctx, key)
}

func (c *CachedStore) Close() error {
	c.cache.Purge()
	return c.next.Close()
}
