package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// Options configures the HTTP engine
type Options struct {
	Logger         *zap.Logger
	TrustedProxies []string
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	Auth           middleware.BasicAuthConfig
	// RateLimiter applies to /api routes only; nil disables limiting
	RateLimiter *middleware.RateLimiter
	// HTTPMetrics records per-request metrics; nil disables recording
	HTTPMetrics middleware.HTTPRecorder
	// MetricsPath and MetricsHandler mount the scrape endpoint when both set
	MetricsPath    string
	MetricsHandler http.Handler
}

// Handlers are the endpoint implementations wired into the engine
type Handlers struct {
	Orders *handler.OrderHandler
	System *handler.SystemHandler
}

// NewEngine builds the gin engine: global middleware, public endpoints and
// the authenticated order API.
//
// Middleware order: request id, recovery, request log, metrics, security
// headers, CORS, body limit. Rate limiting and Basic auth apply to /api.
func NewEngine(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(opts.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	quiet := []string{"/health"}
	if opts.MetricsPath != "" {
		quiet = append(quiet, opts.MetricsPath)
	}
	engine.Use(logger.GinMiddleware(log, logger.WithQuietPaths(quiet...)))
	if opts.HTTPMetrics != nil {
		engine.Use(middleware.HTTPMetrics(opts.HTTPMetrics))
	}
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(opts.CORS))
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}

	engine.GET("/", h.System.Banner)
	engine.GET("/health", h.System.Health)
	if opts.MetricsPath != "" && opts.MetricsHandler != nil {
		engine.GET(opts.MetricsPath, gin.WrapH(opts.MetricsHandler))
	}

	var apiMiddleware []gin.HandlerFunc
	if opts.RateLimiter != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(opts.RateLimiter))
	}
	r := NewRouter(engine, WithMiddleware(apiMiddleware...))
	r.Register(OrderRoutes(h.Orders, middleware.BasicAuth(opts.Auth)))
	r.Setup()

	engine.NoRoute(h.System.NoRoute)

	return engine
}

// OrderRoutes declares the order API under /orders
func OrderRoutes(h *handler.OrderHandler, auth gin.HandlerFunc) *Resource {
	return NewResource("/orders").
		Guard(auth).
		GET("", h.List).
		GET("/csv", h.ExportCSV).
		GET("/summary", h.Summary).
		POST("/refresh", h.Refresh).
		GET("/:id", h.Get).
		GET("/:id/csv", h.ExportOrderCSV)
}

// ServerTimeouts carries the http.Server limits
type ServerTimeouts struct {
	Read, Write, Idle time.Duration
	MaxHeaderBytes    int
}

// NewServer wraps engine in an http.Server listening on addr
func NewServer(addr string, engine http.Handler, t ServerTimeouts) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
		MaxHeaderBytes:    t.MaxHeaderBytes,
	}
}
