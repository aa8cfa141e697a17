// Package cache provides instruction result cache implementations.
//
// Implementations:
//   - memory: bounded LRU, lazy TTL expiry (default)
//   - redis: Redis with JSON serialization and native key TTL, shared by replicas
//
// Both check cached_at + ttl on read; an expired entry is reported as a miss.
package cache
