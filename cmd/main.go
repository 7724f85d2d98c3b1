package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gestion-optica-api/internal/config"
	"gestion-optica-api/internal/database"
	"gestion-optica-api/internal/health"
	"gestion-optica-api/internal/lifecycle"
	"gestion-optica-api/internal/logger"
	"gestion-optica-api/internal/ratelimit"
	"gestion-optica-api/internal/telemetry"
	"gestion-optica-api/routes"
	"gestion-optica-api/services"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl := lifecycle.New(lifecycle.Options{
		Setup: func(c *lifecycle.Controller) (*lifecycle.App, error) {
			return setup(ctx, c)
		},
		Fatal: func(cause error) {
			logger.L().Error("Fatal error, exiting", "error", cause)
			os.Exit(1)
		},
	})

	if err := ctrl.Run(ctx); err != nil {
		os.Exit(1)
	}
}

func setup(ctx context.Context, ctrl *lifecycle.Controller) (*lifecycle.App, error) {
	startedAt := time.Now()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger.InitLogger(cfg)
	log := logger.Logger
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	var closers []lifecycle.Closer

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg)
	if err != nil {
		log.Warn("Tracing disabled", "error", err)
	} else {
		closers = append(closers, lifecycle.Closer{Name: "tracer", Close: shutdownTracer})
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Warn("Metrics disabled", "error", err)
		metrics = nil
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		return nil, err
	}
	closers = append(closers, lifecycle.Closer{Name: "mongo", Close: mongoClient.Disconnect})
	db := mongoClient.Database(cfg.DBName)

	store, storeCloser := newRateLimitStore(cfg, log)
	if storeCloser != nil {
		closers = append(closers, *storeCloser)
	}

	healthSvc := health.NewService(health.Options{
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Timeout:     cfg.HealthTimeout,
		StartedAt:   startedAt,
	}, database.NewMongoProbe(db), log, metrics)

	router, err := routes.NewRouter(routes.Deps{
		Config:  cfg,
		Logger:  log,
		Metrics: metrics,
		Limiter: ratelimit.New(store, cfg.RateLimitReqs, cfg.RateLimitWindow),
		Health:  healthSvc,
	})
	if err != nil {
		return nil, err
	}

	app := &lifecycle.App{
		Addr:            cfg.Addr(),
		Handler:         router,
		Log:             log,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}

	if cfg.AlertsEnabled {
		scheduler := services.NewAlertScheduler(cfg.AlertCron, services.NewDueAlertsJob(db, log), log)
		scheduler.OnPanic = ctrl.Report
		app.Background = scheduler.Start
		closers = append(closers, lifecycle.Closer{Name: "alert-scheduler", Close: scheduler.Close})
	}
	app.Closers = closers

	log.Info("Application configured",
		"environment", cfg.Environment,
		"addr", cfg.Addr(),
		"rate_limit_store", cfg.RateLimitStore,
		"explicit_origins", cfg.HasExplicitOrigins(),
	)
	return app, nil
}

// newRateLimitStore returns the configured store. An unreachable Redis falls
// back to process-local windows.
func newRateLimitStore(cfg *config.Config, log *slog.Logger) (ratelimit.Store, *lifecycle.Closer) {
	if cfg.RateLimitStore != config.StoreRedis {
		return ratelimit.NewMemoryStore(), nil
	}

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory rate limiting", "error", err)
		return ratelimit.NewMemoryStore(), nil
	}
	log.Info("Redis connected for rate limiting")

	return ratelimit.NewRedisStore(rdb, log), &lifecycle.Closer{
		Name:  "redis",
		Close: func(context.Context) error { return rdb.Close() },
	}
}
