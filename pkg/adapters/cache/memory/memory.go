package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/aescanero/dago-workflow/pkg/ports"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds the cache when no size is configured
const DefaultMaxEntries = 10000

// InstructionCache implements ports.InstructionCache with an in-memory LRU
type InstructionCache struct {
	entries *lru.Cache[string, *ports.CacheEntry]
	now     func() time.Time
}

// NewInstructionCache creates a cache holding at most maxEntries results
func NewInstructionCache(maxEntries int) (*InstructionCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	entries, err := lru.New[string, *ports.CacheEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU: %w", err)
	}

	return &InstructionCache{
		entries: entries,
		now:     time.Now,
	}, nil
}

// SetClock replaces the time source, used by tests
func (c *InstructionCache) SetClock(now func() time.Time) {
	c.now = now
}

// Lookup returns the cached result when present and not expired
func (c *InstructionCache) Lookup(ctx context.Context, hash string) (map[string]interface{}, bool, error) {
	entry, ok := c.entries.Get(hash)
	if !ok {
		return nil, false, nil
	}

	if entry.Expired(c.now()) {
		c.entries.Remove(hash)
		return nil, false, nil
	}

	return domain.CopyMap(entry.Result), true, nil
}

// Store records result under hash for ttl
func (c *InstructionCache) Store(ctx context.Context, hash string, result map[string]interface{}, ttl time.Duration) error {
	c.entries.Add(hash, &ports.CacheEntry{
		Result:   domain.CopyMap(result),
		CachedAt: c.now(),
		TTL:      ttl,
	})
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InstructionCache) Len() int {
	return c.entries.Len()
}
