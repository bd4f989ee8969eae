package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/coursereg/internal/app/controllers"
	appMigrations "github.com/yigit/coursereg/internal/app/migrations"
	appRepos "github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/app/repositories/memory"
	"github.com/yigit/coursereg/internal/app/repositories/mongostore"
	"github.com/yigit/coursereg/internal/app/repositories/postgres"
	appRoutes "github.com/yigit/coursereg/internal/app/routes"
	appServices "github.com/yigit/coursereg/internal/app/services"
	"github.com/yigit/coursereg/internal/config"
	"github.com/yigit/coursereg/internal/db"
	appMiddleware "github.com/yigit/coursereg/internal/middleware"
	pkgAuth "github.com/yigit/coursereg/internal/pkg/auth"
	"github.com/yigit/coursereg/internal/pkg/helpers"
	"github.com/yigit/coursereg/internal/pkg/logger"
	"github.com/yigit/coursereg/internal/pkg/queue"
	"github.com/yigit/coursereg/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	Services    *appServices.Services
	JWTService  *pkgAuth.JWTService
	Hasher      *pkgAuth.PasswordHasher
	Controllers appRoutes.Controllers

	AuthMiddleware *appMiddleware.AuthMiddleware
	RateLimit      gin.HandlerFunc

	// optional infrastructure; nil when disabled
	Redis           *redis.Client
	RepairConsumer  *queue.Consumer
	RepairPublisher *queue.Publisher

	ReconcileInterval time.Duration
	Logger            zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join("configs", "config.yaml")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.EqualFold(cfg.Logging.Format, "text"),
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore connects the configured backend and prepares its schema.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*appRepos.Repositories, error) {
	opTimeout := helpers.ParseDuration(cfg.Database.OperationTimeout, 5*time.Second)

	switch cfg.Database.Driver {
	case config.DriverMemory:
		lgr.Warn().Msg("Using the in-memory store; data is lost on restart")
		return memory.NewRepositories(), nil

	case config.DriverMongo:
		lgr.Info().Str("database", cfg.Database.MongoDatabase).Msg("Connecting to MongoDB...")
		mdb, err := db.NewMongoDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, mdb.Database); err != nil {
			_ = mdb.Close(context.Background())
			return nil, err
		}
		lgr.Info().Msg("MongoDB connection established, indexes ensured.")
		return mongostore.NewRepositories(mdb.Client, mdb.Database, opTimeout), nil

	default:
		lgr.Info().Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(ctx, cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		lgr.Info().Msg("Database connection successfully established.")

		migrationsDir := cfg.Database.MigrationsDir
		if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
			database.Close()
			return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
		}
		migrator := appMigrations.NewMigrator(database.Pool, lgr)
		if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
			database.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		return postgres.NewRepositories(database.Pool, opTimeout), nil
	}
}

// BuildDependencies initializes services, controllers and optional infrastructure.
func BuildDependencies(ctx context.Context, cfg *config.Config, repos *appRepos.Repositories, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Repos:             repos,
		Logger:            lgr,
		ReconcileInterval: helpers.ParseDuration(cfg.Enrollment.ReconcileInterval, 10*time.Minute),
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
	deps.Hasher = pkgAuth.NewPasswordHasher(cfg.Security.BcryptCost)

	if _, err := seed.EnsureBootstrapAdmin(ctx, repos.AdminRepository, deps.Hasher, seed.AdminAccount{
		Username:  cfg.BootstrapAdmin.Username,
		Email:     cfg.BootstrapAdmin.Email,
		Password:  cfg.BootstrapAdmin.Password,
		FirstName: cfg.BootstrapAdmin.FirstName,
		LastName:  cfg.BootstrapAdmin.LastName,
	}, lgr); err != nil {
		return nil, err
	}

	var repairs appServices.RepairQueue
	if cfg.RabbitMQ.Enabled {
		deps.RepairPublisher = queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.RepairQueue, lgr.With().Str("component", "repair-publisher").Logger())
		repairs = deps.RepairPublisher
	}

	deps.Services = appServices.New(appServices.Deps{
		Repos:   repos,
		JWT:     deps.JWTService,
		Hasher:  deps.Hasher,
		Repairs: repairs,
		Enrollment: appServices.EnrollmentConfig{
			MaxAttempts:  cfg.Enrollment.MaxAttempts,
			RetryBackoff: helpers.ParseDuration(cfg.Enrollment.RetryBackoff, 50*time.Millisecond),
		},
		Logger: lgr,
	})

	if cfg.RabbitMQ.Enabled {
		deps.RepairConsumer = queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.RepairQueue,
			deps.Services.Reconciler.Repair, lgr.With().Str("component", "repair-consumer").Logger())
	}

	if cfg.Redis.Enabled && cfg.RateLimit.Enabled {
		rdb, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			lgr.Warn().Err(err).Msg("Redis unavailable, rate limiting disabled")
		} else {
			deps.Redis = rdb
		}
	}
	deps.RateLimit = appMiddleware.RateLimit(appMiddleware.RateLimitConfig{
		Capacity:       cfg.RateLimit.Capacity,
		RefillTokens:   cfg.RateLimit.RefillTokens,
		RefillInterval: helpers.ParseDuration(cfg.RateLimit.RefillInterval, 6*time.Second),
		TTL:            helpers.ParseDuration(cfg.RateLimit.TTL, 10*time.Minute),
		Prefix:         cfg.RateLimit.Prefix,
	}, deps.Redis, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.Controllers = appRoutes.Controllers{
		Auth:    appControllers.NewAuthController(deps.Services.Auth),
		Student: appControllers.NewStudentController(deps.Services.Student, deps.Services.Enrollment),
		Course:  appControllers.NewCourseController(deps.Services.Course),
		Admin:   appControllers.NewAdminController(deps.Services.Admin, deps.Services.Reconciler),
		Health:  appControllers.NewHealthController(repos.Ping, cfg.Database.Driver),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, deps.RateLimit)

	return router
}
