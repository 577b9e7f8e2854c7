package middleware

import (
	"context"
	"fmt"
	"time"

	utils "github.com/fathima-sithara/mycloud/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// counter is the part of *redis.Client the limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisRateLimiter is a fixed window counter shared by every replica.
type RedisRateLimiter struct {
	redis  counter
	prefix string
	limit  int
	window time.Duration
	log    *zap.SugaredLogger
}

func NewRedisRateLimiter(r counter, prefix string, limit int, window time.Duration, log *zap.SugaredLogger) *RedisRateLimiter {
	return &RedisRateLimiter{redis: r, prefix: prefix, limit: limit, window: window, log: log}
}

// ByUser limits per authenticated caller, falling back to the client ip.
func (r *RedisRateLimiter) ByUser() fiber.Handler {
	return r.MiddlewareByKey(func(c *fiber.Ctx) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + clientIP(c)
	})
}

func (r *RedisRateLimiter) MiddlewareByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		key := fmt.Sprintf("%s:%s", r.prefix, keyFunc(c))
		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			// fail open when redis is unreachable
			r.log.Warnw("rate limiter unavailable", "key", key, "error", err)
			return c.Next()
		}
		if count == 1 {
			r.redis.Expire(ctx, key, r.window)
		}
		if count > int64(r.limit) {
			return utils.JSONError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
