// Package app assembles the process from configuration: database, Redis,
// token registry, services, router and background worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/cache"
	"taskify/backend/internal/config"
	"taskify/backend/internal/database"
	"taskify/backend/internal/handlers"
	"taskify/backend/internal/logging"
	"taskify/backend/internal/middleware"
	"taskify/backend/internal/monitoring"
	"taskify/backend/internal/oauth"
	"taskify/backend/internal/repositories"
	"taskify/backend/internal/server"
	"taskify/backend/internal/services"
	"taskify/backend/internal/telemetry"
	"taskify/backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	Config *config.Config
	Log    zerolog.Logger

	DB           *database.DatabasePool
	Redis        *redis.Client
	Registry     auth.Registry
	GormRegistry *auth.GormRegistry
	Queue        *worker.JobQueue
	RateLimiter  *middleware.IPRateLimiter

	router            *gin.Engine
	shutdownTelemetry func(context.Context) error
}

// New connects to the database and, when enabled, Redis. Services and the
// router are built lazily by Router so that migrate and purge-tokens do not
// pay for them.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	dbLog := logging.Component(log, "database")
	pool, err := database.NewDatabasePool(database.PoolConfigFromConfig(cfg, &dbLog))
	if err != nil {
		return nil, err
	}
	return newWithDB(ctx, cfg, log, pool)
}

func newWithDB(ctx context.Context, cfg *config.Config, log zerolog.Logger, pool *database.DatabasePool) (*App, error) {
	a := &App{
		Config:            cfg,
		Log:               log,
		DB:                pool,
		GormRegistry:      auth.NewGormRegistry(pool.DB),
		shutdownTelemetry: func(context.Context) error { return nil },
	}
	a.Registry = a.GormRegistry

	if cfg.Redis.Enabled {
		a.Redis = cache.NewRedisClient(cache.CacheConfigFromConfig(cfg))
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := a.Redis.Ping(pingCtx).Err(); err != nil {
			// Redis users degrade on their own; keep going.
			log.Warn().Err(err).Str("addr", cfg.GetRedisAddr()).Msg("Redis is unreachable at startup")
		}
		cancel()

		a.Registry = auth.NewCachedRegistry(
			a.GormRegistry,
			cache.NewRedisCacheWithClient(a.Redis),
			cache.NewCircuitBreaker(cache.DefaultCircuitBreakerConfig()),
			cfg.Auth.RegistryCacheTTL,
			logging.Component(log, "token_registry"),
		)
		a.Queue = worker.NewJobQueue(a.Redis, cfg.Worker.MaxTries)
	}

	return a, nil
}

// Migrate brings the schema up to date.
func (a *App) Migrate() error {
	if err := database.Migrate(a.DB.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.Log.Info().Msg("Database migrated")
	return nil
}

func (a *App) notifications() services.NotificationQueue {
	if a.Queue == nil {
		return services.NoopNotifications()
	}
	return a.Queue
}

// Router builds the services and HTTP router once.
func (a *App) Router() (*gin.Engine, error) {
	if a.router != nil {
		return a.router, nil
	}

	cfg := a.Config
	log := a.Log
	db := a.DB.DB

	tokenCfg := auth.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
		TTL:    cfg.Auth.AccessTokenTTL,
	}
	users := repositories.NewUserRepository(db)
	issuer, err := auth.NewIssuer(tokenCfg, a.Registry)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(tokenCfg, a.Registry, users)
	if err != nil {
		return nil, err
	}

	notifications := a.notifications()
	authService := services.NewAuthService(users, issuer, a.Registry, notifications, cfg.Auth.BCryptCost, logging.Component(log, "auth"))
	userService := services.NewUserService(users, a.Registry, logging.Component(log, "users"))
	taskImpl := services.NewTaskService(repositories.NewTaskRepository(db), notifications, logging.Component(log, "tasks"))

	var taskService services.TaskService = taskImpl
	var cachedTasks *services.CachedTaskService
	if a.Redis != nil {
		cachedTasks = services.NewCachedTaskService(taskImpl, cache.NewRedisCacheWithClient(a.Redis), logging.Component(log, "task_cache"))
		taskService = cachedTasks
	}

	var oauthProvider handlers.OAuthProvider
	google, err := oauth.NewGoogle(cfg.OAuth, cfg.IsProduction())
	switch {
	case err == nil:
		oauthProvider = google
	case errors.Is(err, oauth.ErrNotConfigured):
		log.Info().Msg("Google sign-in disabled, no client credentials configured")
	default:
		return nil, err
	}

	if cfg.RateLimit.Enabled {
		a.RateLimiter = middleware.NewIPRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMin,
			Burst:             cfg.RateLimit.BurstSize,
			CleanupInterval:   cfg.RateLimit.CleanupInterval,
		})
	}
	var authThrottle gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		authThrottle, err = middleware.AuthRateLimiter(cfg.RateLimit.AuthRate, a.Redis, logging.Component(log, "ratelimit"))
		if err != nil {
			return nil, fmt.Errorf("auth rate limiter: %w", err)
		}
	}

	health := monitoring.NewHealthChecker()
	health.Register("database", a.DB.HealthContext)
	if a.Redis != nil {
		health.Register("redis", func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		})
	}

	cacheStats := func() map[string]interface{} {
		stats := map[string]interface{}{"database": a.DB.Stats()}
		if reg, ok := a.Registry.(*auth.CachedRegistry); ok {
			stats["token_registry"] = reg.Stats()
			stats["token_registry_breaker"] = reg.BreakerState().String()
		}
		if cachedTasks != nil {
			stats["task_lists"] = cachedTasks.GetCacheStats()
		}
		return stats
	}

	serviceName := ""
	if cfg.Telemetry.Enabled {
		serviceName = cfg.Telemetry.ServiceName
	}

	a.router = server.NewRouter(server.Deps{
		AuthService:     authService,
		UserService:     userService,
		TaskService:     taskService,
		Authenticator:   verifier,
		OAuth:           oauthProvider,
		RateLimiter:     a.RateLimiter,
		AuthRateLimiter: authThrottle,
		Metrics:         monitoring.NewMetrics(),
		Health:          health,
		CacheStats:      cacheStats,
		ServiceName:     serviceName,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Development:     !cfg.IsProduction(),
		Log:             logging.Component(log, "http"),
	})
	return a.router, nil
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	shutdown, err := telemetry.Setup(ctx, a.Config.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.shutdownTelemetry = shutdown

	if !a.Config.IsProduction() {
		if err := a.Migrate(); err != nil {
			return err
		}
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := a.Router()
	if err != nil {
		return err
	}
	if a.RateLimiter != nil {
		go a.RateLimiter.Run(ctx)
	}

	srv := server.New(a.Config.Server, a.Config.GetServerAddr(), router, logging.Component(a.Log, "server"))
	return srv.Run(ctx)
}

// RunWorker consumes background jobs until ctx is cancelled and schedules
// periodic token cleanup.
func (a *App) RunWorker(ctx context.Context, notifier worker.Notifier) error {
	if a.Redis == nil || a.Queue == nil {
		return errors.New("worker requires Redis, set REDIS_ENABLED=true")
	}
	log := logging.Component(a.Log, "worker")
	if notifier == nil {
		notifier = worker.NewLogNotifier(logging.Component(a.Log, "notifier"))
	}

	w := worker.NewWorker(worker.Config{
		RedisClient:  a.Redis,
		Queues:       a.Config.Worker.Queues,
		PollInterval: a.Config.Worker.PollInterval,
		Log:          log,
	})
	worker.RegisterDefaultHandlers(w, notifier, a.GormRegistry)

	w.Start(ctx, a.Config.Worker.Concurrency)
	go worker.ScheduleTokenCleanup(ctx, a.Queue, a.Config.Worker.CleanupInterval, log)

	<-ctx.Done()
	w.Stop()
	return nil
}

// PurgeTokens deletes every registry record that has already expired.
func (a *App) PurgeTokens(ctx context.Context) (int64, error) {
	return a.GormRegistry.PurgeExpired(ctx, time.Now())
}

func (a *App) Close() error {
	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTelemetry(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
