package middleware

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// =============================================================================
// Cache Control Middleware
// =============================================================================

// CacheConfig holds cache middleware configuration.
type CacheConfig struct {
	// PrivateMaxAge applies to successful reads; zero means revalidate every time.
	PrivateMaxAge time.Duration
	VaryHeaders   []string
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		PrivateMaxAge: 0,
		VaryHeaders:   []string{fiber.HeaderAuthorization, fiber.HeaderAcceptEncoding},
	}
}

// CacheControl marks employee data as private to the caller. Writes and
// failed responses are never stored.
func CacheControl(cfg CacheConfig) fiber.Handler {
	readPolicy := "private, no-cache"
	if cfg.PrivateMaxAge > 0 {
		readPolicy = fmt.Sprintf("private, max-age=%d", int(cfg.PrivateMaxAge.Seconds()))
	}

	return func(c *fiber.Ctx) error {
		err := c.Next()

		method := c.Method()
		if err != nil || c.Response().StatusCode() >= 400 || (method != fiber.MethodGet && method != fiber.MethodHead) {
			c.Set(fiber.HeaderCacheControl, "no-store")
			return err
		}

		c.Set(fiber.HeaderCacheControl, readPolicy)
		for _, h := range cfg.VaryHeaders {
			c.Vary(h)
		}
		return nil
	}
}

// =============================================================================
// ETag Middleware
// =============================================================================

// ETag tags successful GET responses with a body hash and answers a matching
// If-None-Match with 304.
func ETag() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Next()
		}
		if err := c.Next(); err != nil {
			return err
		}
		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}

		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		sum := sha1.Sum(body)
		etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)

		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}
