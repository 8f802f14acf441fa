package bootstrap

import (
	"context"
	"strings"
	"time"

	"staff_server/adapter/in/http"
	"staff_server/adapter/out/messaging"
	"staff_server/adapter/out/mongodb"
	"staff_server/config"
	"staff_server/infra/database"
	"staff_server/infra/middleware"
	"staff_server/pkg/logger"
	"staff_server/pkg/metrics"
	"staff_server/pkg/ratelimit"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// latencyWindow is the number of samples kept per route.
const latencyWindow = 512

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty, every authenticated request will be rejected")
	}

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := NewApp(cfg)
	registry := metrics.NewRegistry(latencyWindow)

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(registry))
	app.Use(middleware.SecurityHeaders())
	app.Use(corsHandler(cfg))
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	// Health check (no auth required)
	checks := map[string]http.HealthChecker{
		"mongodb": http.HealthCheckFunc(func(ctx context.Context) error { return mongodb.Ping(ctx, deps.MongoDB) }),
		"redis":   nil,
	}
	health := http.NewHealthHandler(cfg.Environment, checks, registry).
		WithBreakerState(deps.EmployeeRepo.State)
	if deps.Redis != nil {
		checks["redis"] = http.HealthCheckFunc(func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() })
		health.WithPoolStats("redis", func() any { return database.GetRedisStats(deps.Redis) })
	}
	if deps.DB != nil {
		checks["postgres"] = deps.DB
		health.WithPoolStats("postgres", func() any { return database.GetPoolStats(deps.DB) })
	}
	health.Register(app.Group("/api"))

	// API routes
	api := app.Group("/api/v1")
	api.Use(middleware.RateLimit(ratelimit.NewSlidingWindowLimiter(deps.Redis, cfg.RateLimitMax, cfg.RateLimitWindow())))
	api.Use(middleware.ValidateContentType())
	api.Use(middleware.MongoSanitizer())
	api.Use(middleware.JWTAuth(middleware.AuthConfig{
		Secret:    cfg.JWTSecret,
		Blacklist: middleware.NewTokenBlacklist(deps.Redis),
	}))
	if deps.Producer != nil {
		api.Use(middleware.NewAuditLogger(deps.Producer, messaging.StreamAuditEvents).Middleware())
	}
	api.Use(middleware.CacheControl(middleware.DefaultCacheConfig()), middleware.ETag())

	http.NewEmployeeHandler(deps.EmployeeService).Register(api)

	return app, cleanup, nil
}

// NewApp creates the Fiber app with the shared error handler and go-json codec.
func NewApp(cfg *config.Config) *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})
}

func corsHandler(cfg *config.Config) fiber.Handler {
	// AllowCredentials:true requires explicit origins (not "*")
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000"
		}
	}
	return cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset,Retry-After",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	})
}
