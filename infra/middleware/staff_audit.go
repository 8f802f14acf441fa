package middleware

import (
	"context"
	"strings"
	"time"

	"staff_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id,omitempty"`
	Role        string    `json:"role,omitempty"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource"`
	ResourceID  string    `json:"resource_id,omitempty"`
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"user_agent"`
	StatusCode  int       `json:"status_code"`
	Duration    int64     `json:"duration_ms"`
	RequestID   string    `json:"request_id"`
	Success     bool      `json:"success"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

// AuditPublisher appends a payload to a named stream.
type AuditPublisher interface {
	Publish(ctx context.Context, stream, kind string, payload any) error
}

// AuditLogger records mutating requests to an audit stream.
type AuditLogger struct {
	publisher AuditPublisher
	stream    string
	timeout   time.Duration
}

// NewAuditLogger returns nil when publisher is nil; a nil logger audits nothing.
func NewAuditLogger(publisher AuditPublisher, stream string) *AuditLogger {
	if publisher == nil {
		logger.Warn("Audit publisher not provided, audit logging disabled")
		return nil
	}
	return &AuditLogger{publisher: publisher, stream: stream, timeout: 5 * time.Second}
}

// auditActions maps write methods to action verbs.
var auditActions = map[string]string{
	fiber.MethodPost:   "create",
	fiber.MethodPut:    "update",
	fiber.MethodPatch:  "update",
	fiber.MethodDelete: "delete",
}

// Middleware audits write requests. Publishing happens off the request path.
func (a *AuditLogger) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		verb, audited := auditActions[c.Method()]
		if a == nil || !audited {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = errorStatus(err)
		}

		// the event outlives the request, so copy out of fasthttp's buffers
		path := utils.CopyString(c.Path())
		resource := extractResource(path)
		event := &AuditEvent{
			ID:         uuid.NewString(),
			Timestamp:  start.UTC(),
			Action:     resource + "_" + verb,
			Resource:   resource,
			ResourceID: utils.CopyString(c.Params("id")),
			Method:     utils.CopyString(c.Method()),
			Path:       path,
			IP:         utils.CopyString(c.IP()),
			UserAgent:  utils.CopyString(c.Get(fiber.HeaderUserAgent)),
			StatusCode: status,
			Duration:   time.Since(start).Milliseconds(),
			Success:    status < 400,
		}
		if id, ok := c.Locals(LocalRequestID).(string); ok {
			event.RequestID = utils.CopyString(id)
		}
		if actor, ok := ActorFrom(c); ok {
			event.UserID = actor.ID
			event.Role = string(actor.Role)
		}
		if err != nil {
			event.ErrorDetail = err.Error()
		}

		go a.publish(event)
		return err
	}
}

func (a *AuditLogger) publish(event *AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.publisher.Publish(ctx, a.stream, event.Action, event); err != nil {
		logger.WithError(err).Warn("Failed to log audit event")
	}
}

// extractResource returns the segment after the API version: /api/v1/{resource}.
func extractResource(path string) string {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) >= 3 {
		return parts[2]
	}
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return ""
}
