package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/pkg/util"
)

// RateLimit enforces a fixed-window per-IP request cap backed by redis.
// Redis outages fail open so the API stays reachable without its limiter.
func RateLimit(client *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Enabled || client == nil {
			return c.Next()
		}

		ctx := c.UserContext()
		key := "ratelimit:" + c.IP()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			if err := client.Expire(ctx, key, cfg.Window()).Err(); err != nil {
				logger.Warn("rate limiter expire failed", zap.Error(err))
			}
		}
		if count > int64(cfg.MaxRequests) {
			return util.NewTooManyRequests("Too many requests from this IP, please try again later.")
		}
		return c.Next()
	}
}
