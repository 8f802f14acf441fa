package middleware

import (
	"strconv"
	"time"

	"staff_server/pkg/apperr"
	"staff_server/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimit limits requests per client IP. Preflight requests are not counted.
func RateLimit(limiter ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		d := limiter.Allow(c.UserContext(), "ip:"+c.IP())
		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retry := int(d.RetryAfter(time.Now()).Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			return apperr.ErrRateLimited
		}
		return c.Next()
	}
}
