package http

import (
	"context"
	"time"

	"staff_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// HealthChecker is a dependency the readiness probe pings.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	env      string
	started  time.Time
	checks   map[string]HealthChecker
	breaker  func() string
	registry *metrics.Registry
	pools    map[string]func() any
	timeout  time.Duration
}

// NewHealthHandler creates the health handler. A nil checker is reported as
// not configured.
func NewHealthHandler(env string, checks map[string]HealthChecker, registry *metrics.Registry) *HealthHandler {
	return &HealthHandler{
		env:      env,
		started:  time.Now(),
		checks:   checks,
		registry: registry,
		timeout:  5 * time.Second,
	}
}

// WithPoolStats adds a connection pool snapshot to the metrics output.
func (h *HealthHandler) WithPoolStats(name string, stats func() any) *HealthHandler {
	if h.pools == nil {
		h.pools = make(map[string]func() any)
	}
	h.pools[name] = stats
	return h
}

// WithBreakerState reports the storage circuit breaker in readiness output.
func (h *HealthHandler) WithBreakerState(state func() string) *HealthHandler {
	h.breaker = state
	return h
}

func (h *HealthHandler) Register(router fiber.Router) {
	health := router.Group("/health")
	health.Get("/", h.Health)
	health.Get("/ready", h.Ready)
	health.Get("/metrics", h.Metrics)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"status":    "ok",
		"env":       h.env,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks)+1)
	allHealthy := true

	for name, checker := range h.checks {
		if checker == nil {
			checks[name] = "not configured"
			continue
		}
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	if h.breaker != nil {
		state := h.breaker()
		checks["storage_breaker"] = state
		if state == "open" {
			allHealthy = false
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success":   allHealthy,
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Metrics returns per-route latency summaries and connection pool stats.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	routes := map[string]metrics.Summary{}
	if h.registry != nil {
		routes = h.registry.Snapshot()
	}
	pools := make(map[string]any, len(h.pools))
	for name, stats := range h.pools {
		pools[name] = stats()
	}
	return c.JSON(fiber.Map{
		"success": true,
		"routes":  routes,
		"pools":   pools,
	})
}
