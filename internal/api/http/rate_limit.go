package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// RateLimiter is a fixed-window per-IP limiter backed by Redis. It
// protects the unauthenticated link endpoints from token scanning. Redis
// being unreachable fails open; the links themselves stay safe either way.
func RateLimiter(client *redis.Client, perMinute int, logger *zap.Logger) fiber.Handler {
	if client == nil || perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return func(c *fiber.Ctx) error {
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:%s:%d", c.IP(), window)

		count, err := client.Incr(c.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			client.Expire(c.Context(), key, time.Minute)
		}
		if count > int64(perMinute) {
			return apperrors.NewDomainError("RATE_LIMITED", "too many requests", http.StatusTooManyRequests, nil)
		}
		return c.Next()
	}
}
