package middleware

import (
	"errors"
	"time"

	"coursegate/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// RecoveryMiddleware превращает panic в 500 вместо падения процесса
func RecoveryMiddleware() fiber.Handler {
	return recover.New(recover.Config{EnableStackTrace: true})
}

// RateLimiter ограничивает число запросов с одного IP в минуту.
// perMinute <= 0 отключает лимит.
func RateLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.ErrorWithCode(c, fiber.StatusTooManyRequests, "rate_limited", errors.New("too many requests, try again later"))
		},
	})
}
