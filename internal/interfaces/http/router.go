package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/interfaces/http/handlers"
	"github.com/turtacn/HyperBlend/internal/interfaces/http/middleware"
)

// APIPrefix is the root of the REST API.
const APIPrefix = "/api"

// APIRoutes is implemented by every REST handler.
type APIRoutes interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterConfig aggregates the handlers and middleware used to build the
// route tree. Nil handlers are skipped.
type RouterConfig struct {
	// API handlers, mounted under APIPrefix.
	API []APIRoutes

	HealthHandler *handlers.HealthHandler
	UIHandler     *handlers.UIHandler

	// Middleware
	CORS        *middleware.CORSConfig
	Logging     middleware.LoggingConfig
	RateLimiter middleware.RateLimiter
	RateLimit   middleware.RateLimitConfig

	// Infrastructure
	Logger       logging.Logger
	HTTPMetrics  middleware.HTTPObserver
	MetricsPath  string
	MetricsProbe http.Handler
}

// NewRouter builds the route tree: global middleware, probes, metrics, the
// rate-limited REST API and the UI.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Recovery(logger))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(logger, cfg.Logging))
	if cfg.HTTPMetrics != nil {
		r.Use(middleware.Metrics(cfg.HTTPMetrics))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsProbe != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsProbe))
	}

	api := r.Group(APIPrefix)
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}
	for _, h := range cfg.API {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	if cfg.UIHandler != nil {
		cfg.UIHandler.RegisterRoutes(r)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{
			Error:     "route not found",
			Details:   c.Request.Method + " " + c.Request.URL.Path,
			RequestID: middleware.GetRequestID(c),
		})
	})
	return r
}
