package toolbar

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard marks authorization states consumed. Consume must be atomic
// with respect to concurrent exchange attempts for the same state: exactly
// one caller observes first == true.
type ReplayGuard interface {
	Consume(ctx context.Context, stateID string, ttl time.Duration) (first bool, err error)
}

const replayKeyPrefix = "toolbar:state:"

// RedisReplayGuard implements ReplayGuard with SETNX; the key expires with
// the state itself, so consumed markers never accumulate.
type RedisReplayGuard struct {
	client *redis.Client
}

// NewRedisReplayGuard creates a Redis-backed replay guard.
func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{client: client}
}

// Consume marks the state consumed, reporting whether this was the first use.
func (g *RedisReplayGuard) Consume(ctx context.Context, stateID string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, replayKeyPrefix+stateID, "1", ttl).Result()
}

// MemoryReplayGuard is an in-process ReplayGuard for tests.
type MemoryReplayGuard struct {
	mu   sync.Mutex
	used map[string]struct{}
}

// NewMemoryReplayGuard creates an in-memory replay guard.
func NewMemoryReplayGuard() *MemoryReplayGuard {
	return &MemoryReplayGuard{used: make(map[string]struct{})}
}

// Consume marks the state consumed, reporting whether this was the first use.
func (g *MemoryReplayGuard) Consume(_ context.Context, stateID string, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.used[stateID]; ok {
		return false, nil
	}
	g.used[stateID] = struct{}{}
	return true, nil
}
