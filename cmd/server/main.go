package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/ordersync"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/idosell"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence/filestore"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Service:     cfg.App.Name,
		Environment: cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting orders backend", zap.String("port", cfg.App.Port))

	metrics := telemetry.New()

	store := filestore.New(cfg.Store.Path, log,
		filestore.WithLockTiming(cfg.Store.LockTimeout, cfg.Store.LockPollInterval),
	)

	source := newSource(cfg.IdoSell, metrics, log)
	svc := ordersync.NewService(source, store, metrics, log)

	// Scheduler
	var refreshScheduler *scheduler.RefreshScheduler
	var schedulerStatus handler.SchedulerStatus
	if cfg.Scheduler.Enabled {
		refreshScheduler, err = scheduler.NewRefreshScheduler(scheduler.Config{
			CronSchedule: cfg.Scheduler.CronSchedule,
			Location:     cfg.Scheduler.Location(),
		}, svc, log)
		if err != nil {
			log.Fatal("Invalid refresh schedule", zap.Error(err))
		}
		if err := refreshScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start refresh scheduler", zap.Error(err))
		}
		schedulerStatus = handler.SchedulerStatusFunc(func() any { return refreshScheduler.Status() })
	} else {
		log.Info("Refresh scheduler disabled in configuration")
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var rateLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Close()
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	opts := router.Options{
		Logger:         log,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           corsConfig,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Auth: middleware.BasicAuthConfig{
			Username:     cfg.Auth.Username,
			Password:     cfg.Auth.Password,
			PasswordHash: cfg.Auth.PasswordHash,
		},
		RateLimiter: rateLimiter,
	}
	if cfg.Metrics.Enabled {
		opts.HTTPMetrics = metrics
		opts.MetricsPath = cfg.Metrics.Path
		opts.MetricsHandler = metrics.Handler()
	}

	engine := router.NewEngine(opts, router.Handlers{
		Orders: handler.NewOrderHandler(svc),
		System: handler.NewSystemHandler(svc, schedulerStatus),
	})

	srv := router.NewServer(cfg.App.Address(), engine, router.ServerTimeouts{
		Read:           cfg.HTTP.ReadTimeout,
		Write:          cfg.HTTP.WriteTimeout,
		Idle:           cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	})

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if refreshScheduler != nil {
		if err := refreshScheduler.Stop(ctx); err != nil {
			log.Warn("Refresh scheduler did not stop cleanly", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// newSource builds the upstream client. Without credentials the server still
// serves stored orders; refresh cycles fail with the configuration error.
func newSource(cfg config.IdoSellConfig, metrics *telemetry.Metrics, log *zap.Logger) order.Source {
	client, err := idosell.NewClient(idosell.Config{
		BaseURL:          cfg.BaseURL,
		APIKey:           cfg.APIKey,
		Timeout:          cfg.Timeout,
		PageSize:         cfg.PageSize,
		FallbackPageSize: cfg.FallbackPageSize,
		RetryAttempts:    cfg.RetryAttempts,
		RetryBaseDelay:   cfg.RetryBaseDelay,
	}, log, idosell.WithObserver(metrics))
	if err != nil {
		log.Warn("Upstream order API not configured, refresh disabled", zap.Error(err))
		return unavailableSource{err: err}
	}
	return client
}

type unavailableSource struct {
	err error
}

func (s unavailableSource) FetchBatch(context.Context) ([]order.Order, error) {
	return nil, s.err
}
