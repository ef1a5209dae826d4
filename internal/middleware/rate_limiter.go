package middleware

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"table_admin/internal/auth"
	"table_admin/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//go:embed rate_limiter.lua
var luaScript string

var tokenBucket = redis.NewScript(luaScript)

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	Capacity   int     // Maximum number of tokens (max requests)
	RefillRate float64 // Tokens refilled per second
	Scope      string  // Separates buckets of different presets
}

// Limiter decides whether the bucket under key may spend one token.
type Limiter interface {
	Allow(ctx context.Context, key string, cfg *RateLimiterConfig) (allowed bool, retryAfter time.Duration, err error)
}

// RedisLimiter shares buckets across API instances.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, cfg *RateLimiterConfig) (bool, time.Duration, error) {
	// Run uses EVALSHA and loads the script on NOSCRIPT.
	result, err := tokenBucket.Run(ctx, l.client, []string{key},
		cfg.Capacity,
		cfg.RefillRate,
		time.Now().UnixMilli(),
	).Slice()
	if err != nil {
		return true, 0, err
	}
	if len(result) != 2 {
		return true, 0, fmt.Errorf("unexpected rate limiter reply: %v", result)
	}

	allowed, _ := result[0].(int64)
	retryMs, _ := result[1].(int64)
	return allowed == 1, time.Duration(retryMs) * time.Millisecond, nil
}

// NewLimiter prefers Redis and falls back to in-process buckets.
func NewLimiter(client *redis.Client) Limiter {
	if client == nil {
		return NewLocalLimiter(10 * time.Minute)
	}
	return NewRedisLimiter(client)
}

// RateLimiterMiddleware applies a token bucket per authenticated user, or per
// client IP for anonymous requests. Limiter errors let the request through.
func RateLimiterMiddleware(limiter Limiter, config *RateLimiterConfig, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimiterKey(c, config.Scope)

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key, config)
		if err != nil {
			logrus.WithError(err).Error("Failed to execute rate limiter")
			// Fail open: allow request if Redis fails
			c.Next()
			return
		}

		if !allowed {
			metrics.RateLimited(config.Scope)
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

func rateLimiterKey(c *gin.Context, scope string) string {
	if userID, err := auth.GetUserIDFromContext(c); err == nil {
		return UserRateLimiterKey(scope, userID)
	}
	return IPRateLimiterKey(scope, c.ClientIP())
}

// Build cache key for user rate limiting
func UserRateLimiterKey(scope string, userID int) string {
	return fmt.Sprintf("rate_limiter:%s:user:%d", scope, userID)
}

func IPRateLimiterKey(scope string, ip string) string {
	return fmt.Sprintf("rate_limiter:%s:ip:%s", scope, ip)
}
