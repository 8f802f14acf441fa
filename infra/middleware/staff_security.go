package middleware

import (
	"bytes"
	"net/url"
	"strings"

	"staff_server/pkg/apperr"
	"staff_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders adds security headers to all responses
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "0")
		c.Set("X-DNS-Prefetch-Control", "off")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		c.Set("Cross-Origin-Opener-Policy", "same-origin")
		c.Set("Cross-Origin-Resource-Policy", "same-origin")
		c.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		c.Set("Server", "")
		return c.Next()
	}
}

// ValidateContentType rejects write requests whose body is not JSON.
func ValidateContentType() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		default:
			return c.Next()
		}
		if len(c.Body()) == 0 {
			return c.Next()
		}
		contentType := c.Get(fiber.HeaderContentType)
		if contentType == "" {
			return apperr.BadRequest("Content-Type header required")
		}
		if !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return fiber.NewError(fiber.StatusUnsupportedMediaType, "Unsupported content type")
		}
		return c.Next()
	}
}

// =============================================================================
// Operator injection
// =============================================================================

// MongoSanitizer strips query keys that carry a `$` operator and JSON body
// keys that start with `$` or contain a dot, at any depth. Dotted query keys
// are kept since they address nested fields in list filters.
func MongoSanitizer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if removed := sanitizeQuery(c); len(removed) > 0 {
			logSuspiciousRequest(c, "query", removed)
		}

		if isJSONBody(c) {
			body := c.Body()
			var payload any
			if err := json.Unmarshal(body, &payload); err == nil {
				var removed []string
				if sanitizeValue(payload, &removed) {
					clean, err := json.Marshal(payload)
					if err != nil {
						return err
					}
					c.Request().SetBody(clean)
					logSuspiciousRequest(c, "body", removed)
				}
			}
		}
		return c.Next()
	}
}

func isJSONBody(c *fiber.Ctx) bool {
	if len(c.Body()) == 0 {
		return false
	}
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
}

// sanitizeQuery rewrites the query string without `$` keys and returns the
// keys it removed.
func sanitizeQuery(c *fiber.Ctx) []string {
	raw := c.Request().URI().QueryString()
	if !bytes.ContainsAny(raw, "$%") {
		return nil
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil
	}

	var removed []string
	for key := range values {
		if strings.Contains(key, "$") {
			removed = append(removed, key)
			delete(values, key)
		}
	}
	if len(removed) > 0 {
		c.Request().URI().SetQueryString(values.Encode())
	}
	return removed
}

func forbiddenKey(key string) bool {
	return strings.HasPrefix(key, "$") || strings.Contains(key, ".")
}

// sanitizeValue deletes forbidden keys from decoded JSON in place and reports
// whether anything changed.
func sanitizeValue(v any, removed *[]string) bool {
	changed := false
	switch val := v.(type) {
	case map[string]any:
		for key, child := range val {
			if forbiddenKey(key) {
				*removed = append(*removed, key)
				delete(val, key)
				changed = true
				continue
			}
			if sanitizeValue(child, removed) {
				changed = true
			}
		}
	case []any:
		for _, child := range val {
			if sanitizeValue(child, removed) {
				changed = true
			}
		}
	}
	return changed
}

func logSuspiciousRequest(c *fiber.Ctx, source string, keys []string) {
	logger.WithContext(c.UserContext()).WithFields(map[string]any{
		"ip":     c.IP(),
		"path":   c.Path(),
		"source": source,
		"keys":   keys,
	}).Warn("[Sanitizer] removed operator keys from request")
}
