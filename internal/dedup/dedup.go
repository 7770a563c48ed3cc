// Package dedup guards against processing a redelivered invocation twice.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "skills:claimed"
)

// Guard claims invocation request ids. Claim returns false when the id was
// already claimed within the TTL.
type Guard interface {
	Claim(ctx context.Context, requestID string) (bool, error)
	Release(ctx context.Context, requestID string) error
}

// RedisGuard shares claims across server instances.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGuard creates a guard. If ttl is 0, defaults to DefaultTTL.
func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, requestID string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, key(requestID), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", requestID, err)
	}
	return ok, nil
}

// Release forgets a claim so a later redelivery is processed again.
func (g *RedisGuard) Release(ctx context.Context, requestID string) error {
	if err := g.rdb.Del(ctx, key(requestID)).Err(); err != nil {
		return fmt.Errorf("release %s: %w", requestID, err)
	}
	return nil
}

// Ping checks the redis connection.
func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.rdb.Ping(ctx).Err()
}

// Close closes the underlying redis connection
func (g *RedisGuard) Close() error {
	return g.rdb.Close()
}

func key(requestID string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, requestID)
}

// MemoryGuard keeps claims in process memory.
type MemoryGuard struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	claimed map[string]time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGuard{ttl: ttl, now: time.Now, claimed: make(map[string]time.Time)}
}

func (g *MemoryGuard) Claim(ctx context.Context, requestID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for id, expires := range g.claimed {
		if !now.Before(expires) {
			delete(g.claimed, id)
		}
	}
	if _, ok := g.claimed[requestID]; ok {
		return false, nil
	}
	g.claimed[requestID] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, requestID string) error {
	g.mu.Lock()
	delete(g.claimed, requestID)
	g.mu.Unlock()
	return nil
}
