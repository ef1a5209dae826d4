package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"table_admin/internal/config"
	"table_admin/internal/observability"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// SetupRedis connects to Redis, or returns nil when no host is configured.
func SetupRedis(redisCfg *config.RedisConfig) *redis.Client {
	if !redisCfg.Enabled() {
		logrus.Info("Redis not configured, caching and distributed rate limiting disabled")
		return nil
	}

	addr := fmt.Sprintf("%s:%s", redisCfg.Host, redisCfg.Port)

	dbNum, err := strconv.Atoi(redisCfg.RedisDB)
	if err != nil {
		logrus.Fatalf("Invalid Redis DB number: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: redisCfg.RedisPassword,
		DB:       dbNum,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}

	logrus.WithField("addr", addr).Info("Redis connection established")
	return rdb
}

// NewTableListCache picks the Redis cache when a client is available.
func NewTableListCache(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) TableListCache {
	if client == nil {
		return NoopTableCache{}
	}
	return NewRedisTableCache(client, ttl, metrics)
}
