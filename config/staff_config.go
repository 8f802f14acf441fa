package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// User directory backends
const (
	UserDirectoryMongo    = "mongo"
	UserDirectoryPostgres = "postgres"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	MongoDBURL    string
	MongoDBName   string
	RedisURL      string
	DatabaseURL   string
	UserDirectory string

	// JWT
	JWTSecret      string
	JWTExpireHours int

	// CORS
	AllowedOrigins []string

	// Rate limit
	RateLimitMax       int
	RateLimitWindowMin int

	// Employees
	EmployeeIDMaxRetries int
	StatsCacheTTLSec     int

	// Storage circuit breaker
	BreakerConsecutiveFailures int
	BreakerTimeoutSec          int
	BreakerFailureRatio        float64

	// Seeder
	SeedDataDir string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		MongoDBURL:    getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGODB_DATABASE", "employee_management"),
		RedisURL:      getEnv("REDIS_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		UserDirectory: getEnv("USER_DIRECTORY", UserDirectoryMongo),

		// JWT
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 720),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Rate limit
		RateLimitMax:       getEnvInt("RATE_LIMIT_MAX", 100),
		RateLimitWindowMin: getEnvInt("RATE_LIMIT_WINDOW_MIN", 10),

		// Employees
		EmployeeIDMaxRetries: getEnvInt("EMPLOYEE_ID_MAX_RETRIES", 5),
		StatsCacheTTLSec:     getEnvInt("STATS_CACHE_TTL_SEC", 60),

		// Breaker
		BreakerConsecutiveFailures: getEnvInt("BREAKER_CONSECUTIVE_FAILURES", 5),
		BreakerTimeoutSec:          getEnvInt("BREAKER_TIMEOUT_SEC", 30),
		BreakerFailureRatio:        getEnvFloat("BREAKER_FAILURE_RATIO", 0.6),

		// Seeder
		SeedDataDir: getEnv("SEED_DATA_DIR", "_data"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.UserDirectory {
	case UserDirectoryMongo:
	case UserDirectoryPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("USER_DIRECTORY=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown USER_DIRECTORY %q", c.UserDirectory)
	}
	if c.EmployeeIDMaxRetries < 1 {
		return fmt.Errorf("EMPLOYEE_ID_MAX_RETRIES must be at least 1, got %d", c.EmployeeIDMaxRetries)
	}
	if c.RateLimitMax < 1 || c.RateLimitWindowMin < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW_MIN must be positive")
	}
	return nil
}

// JWTExpiry is the lifetime of issued tokens.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpireHours) * time.Hour
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMin) * time.Minute
}

func (c *Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.StatsCacheTTLSec) * time.Second
}

func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
