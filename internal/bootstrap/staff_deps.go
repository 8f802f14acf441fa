package bootstrap

import (
	"context"
	"time"

	"staff_server/adapter/out/cache"
	"staff_server/adapter/out/messaging"
	"staff_server/adapter/out/mongodb"
	"staff_server/adapter/out/persistence"
	"staff_server/adapter/out/resilient"
	"staff_server/config"
	"staff_server/core/port/out"
	"staff_server/core/service/employee"
	"staff_server/core/service/seed"
	"staff_server/infra/database"
	rediscache "staff_server/pkg/cache"
	"staff_server/pkg/logger"
	"staff_server/pkg/resilience"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const setupTimeout = 30 * time.Second

type Dependencies struct {
	Config  *config.Config
	MongoDB *mongo.Client
	Redis   *redis.Client
	DB      *pgxpool.Pool
	SQLDB   *sqlx.DB

	// Repositories
	EmployeeRepo *resilient.EmployeeRepository
	UserRepo     out.UserRepository

	// Messaging
	Producer *messaging.RedisProducer

	// Services
	EmployeeService *employee.Service
	Seeder          *seed.Seeder
}

// NewDependencies connects the stores and builds the services. MongoDB is
// required; Redis and PostgreSQL are optional unless configured as the user
// directory.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	// MongoDB
	mongoClient, err := mongodb.NewClient(cfg.MongoDBURL, mongodb.DefaultClientOptions())
	if err != nil {
		return nil, nil, err
	}
	deps.MongoDB = mongoClient
	cleanups = append(cleanups, func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("MongoDB disconnect failed")
		}
	})
	mongoDB := mongoClient.Database(cfg.MongoDBName)
	logger.Info("MongoDB connected (database: %s)", cfg.MongoDBName)

	employeeStore := mongodb.NewEmployeeAdapter(mongoDB)
	if err := employeeStore.EnsureIndexes(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL, database.DefaultRedisConfig())
		if err != nil {
			logger.Warn("Redis connection failed, running without cache, events and shared rate limits: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			deps.Producer = messaging.NewRedisProducer(redisClient)
			logger.Info("Redis connected")
		}
	}

	// User directory
	switch cfg.UserDirectory {
	case config.UserDirectoryPostgres:
		pool, err := database.NewPostgres(cfg.DatabaseURL, database.DefaultPostgresConfig())
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.DB = pool
		cleanups = append(cleanups, pool.Close)

		sqlDB, err := database.NewSQLX(cfg.DatabaseURL, database.DefaultPostgresConfig())
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.SQLDB = sqlDB
		cleanups = append(cleanups, func() { sqlDB.Close() })

		users := persistence.NewUserRepository(sqlDB)
		if err := users.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.UserRepo = users
		logger.Info("User directory: PostgreSQL")
	default:
		users := mongodb.NewUserAdapter(mongoDB)
		if err := users.EnsureIndexes(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.UserRepo = users
		logger.Info("User directory: MongoDB")
	}

	// Employee repository behind the storage breaker
	breakerCfg := resilience.DefaultBreakerConfig("employee-store")
	breakerCfg.ConsecutiveFailures = uint32(cfg.BreakerConsecutiveFailures)
	breakerCfg.Timeout = cfg.BreakerTimeout()
	breakerCfg.FailureRatio = cfg.BreakerFailureRatio
	deps.EmployeeRepo = resilient.NewEmployeeRepository(employeeStore, breakerCfg)

	// Services
	opts := []employee.Option{employee.WithAllocationRetries(cfg.EmployeeIDMaxRetries)}
	if deps.Redis != nil {
		statsStore := rediscache.NewRedisCache(deps.Redis, "staff:")
		opts = append(opts,
			employee.WithStatsCache(cache.NewStatsCache(statsStore, cfg.StatsCacheTTL())),
			employee.WithEventPublisher(deps.Producer),
		)
	}
	deps.EmployeeService = employee.NewService(deps.EmployeeRepo, deps.UserRepo, opts...)
	deps.Seeder = seed.NewSeeder(deps.UserRepo, deps.EmployeeService, cfg.SeedDataDir)

	return deps, cleanup, nil
}
