package cache

import (
	"context"
	"encoding/json"
	"time"

	"table_admin/internal/observability"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTableCacheTTL = time.Minute

	TablesListKey = "tables:list"
	tablesKeyType = "tables"
)

// TableListCache holds the last known list of table names.
type TableListCache interface {
	GetTables(ctx context.Context) ([]string, bool)
	SetTables(ctx context.Context, tables []string)
	Invalidate(ctx context.Context)
}

type RedisTableCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

func NewRedisTableCache(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *RedisTableCache {
	if ttl <= 0 {
		ttl = DefaultTableCacheTTL
	}
	return &RedisTableCache{client: client, ttl: ttl, metrics: metrics}
}

// GetTables reports a miss on any Redis or decoding error.
func (c *RedisTableCache) GetTables(ctx context.Context) ([]string, bool) {
	val, err := c.client.Get(ctx, TablesListKey).Bytes()
	if err == redis.Nil {
		c.metrics.CacheMiss(tablesKeyType)
		return nil, false
	}
	if err != nil {
		logrus.WithError(err).Warn("Failed to read table list from cache")
		c.metrics.CacheMiss(tablesKeyType)
		return nil, false
	}

	var tables []string
	if err := json.Unmarshal(val, &tables); err != nil {
		logrus.WithError(err).Warn("Discarding malformed cached table list")
		c.metrics.CacheMiss(tablesKeyType)
		return nil, false
	}

	c.metrics.CacheHit(tablesKeyType)
	return tables, true
}

func (c *RedisTableCache) SetTables(ctx context.Context, tables []string) {
	data, err := json.Marshal(tables)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, TablesListKey, data, c.ttl).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to cache table list")
	}
}

func (c *RedisTableCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, TablesListKey).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate table list cache")
	}
}

// NoopTableCache is used when Redis is not configured.
type NoopTableCache struct{}

func (NoopTableCache) GetTables(context.Context) ([]string, bool) { return nil, false }
func (NoopTableCache) SetTables(context.Context, []string)       {}
func (NoopTableCache) Invalidate(context.Context)                 {}
