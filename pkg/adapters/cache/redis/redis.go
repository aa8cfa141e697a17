package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/dago-workflow/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "dago:cache:"

// InstructionCache implements ports.InstructionCache using Redis
type InstructionCache struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewInstructionCache creates a new Redis instruction cache
func NewInstructionCache(client *redis.Client, logger *zap.Logger) *InstructionCache {
	return &InstructionCache{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Lookup retrieves a cached result. Entries whose cached_at + ttl has passed
// are misses even if Redis has not evicted the key yet.
func (c *InstructionCache) Lookup(ctx context.Context, hash string) (map[string]interface{}, bool, error) {
	data, err := c.client.Get(ctx, getCacheKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry ports.CacheEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	restoreNumbers(entry.Result)

	if entry.Expired(c.now()) {
		c.logger.Debug("cache entry expired", zap.String("hash", hash))
		return nil, false, nil
	}

	return entry.Result, true, nil
}

// Store saves result under hash with a native Redis TTL
func (c *InstructionCache) Store(ctx context.Context, hash string, result map[string]interface{}, ttl time.Duration) error {
	entry := ports.CacheEntry{
		Result:   result,
		CachedAt: c.now(),
		TTL:      ttl,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, getCacheKey(hash), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}

	c.logger.Debug("cache entry stored",
		zap.String("hash", hash),
		zap.Duration("ttl", ttl))

	return nil
}

// restoreNumbers replaces decoded json.Number values in place: integers
// become int, everything else float64. An integral float such as 2.0 is
// encoded as 2 and therefore comes back as int.
func restoreNumbers(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = restoreNumbers(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = restoreNumbers(item)
		}
		return val
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// getCacheKey returns the Redis key for an instruction hash
func getCacheKey(hash string) string {
	return fmt.Sprintf("%s%s", keyPrefix, hash)
}
