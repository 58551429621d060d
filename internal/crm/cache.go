package crm

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const mappingCacheKey = "crm:account_mappings"

// MappingCache is the organization-id -> CRM-account-id cache shared across
// enrichment runs. Freshness is a TTL on the whole hash; a run reuses the
// cache when populated and repopulates it otherwise.
type MappingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewMappingCache creates the account mapping cache.
func NewMappingCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *MappingCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MappingCache{client: client, ttl: ttl, logger: logger}
}

// Count returns the number of cached mappings (0 means cold or expired).
func (c *MappingCache) Count(ctx context.Context) (int64, error) {
	n, err := c.client.HLen(ctx, mappingCacheKey).Result()
	if err != nil {
		return 0, fmt.Errorf("hlen: %w", err)
	}
	return n, nil
}

// Get returns the CRM account id for one organization.
func (c *MappingCache) Get(ctx context.Context, orgID string) (string, bool, error) {
	v, err := c.client.HGet(ctx, mappingCacheKey, orgID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget: %w", err)
	}
	return v, true, nil
}

// GetAll returns every cached organization -> account mapping.
func (c *MappingCache) GetAll(ctx context.Context) (map[string]string, error) {
	m, err := c.client.HGetAll(ctx, mappingCacheKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}
	return m, nil
}

// Populate replaces the cache contents atomically and resets the TTL.
func (c *MappingCache) Populate(ctx context.Context, mappings []AccountMapping) error {
	if len(mappings) == 0 {
		return c.Invalidate(ctx)
	}

	fields := make([]interface{}, 0, len(mappings)*2)
	for _, m := range mappings {
		fields = append(fields, m.OrgID, m.AccountID)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, mappingCacheKey)
	pipe.HSet(ctx, mappingCacheKey, fields...)
	pipe.Expire(ctx, mappingCacheKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("populate mapping cache: %w", err)
	}
	c.logger.Info("account mapping cache populated", zap.Int("mappings", len(mappings)))
	return nil
}

// Invalidate drops the cache; the next run repopulates it.
func (c *MappingCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, mappingCacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate mapping cache: %w", err)
	}
	return nil
}
