package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/AIComply/internal/interfaces/http/handlers"
	"github.com/turtacn/AIComply/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	SystemHandler      *handlers.SystemHandler
	AssessmentHandler  *handlers.AssessmentHandler
	CertificateHandler *handlers.CertificateHandler
	HealthHandler      *handlers.HealthHandler

	CORS        *middleware.CORSConfig
	Logging     middleware.LoggingConfig
	RateLimiter middleware.RateLimiter
	RateLimit   middleware.RateLimitConfig

	// MaxBodySize caps request bodies in bytes. Zero disables the cap.
	MaxBodySize int64

	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
}

// NewRouter builds the gin engine: global middleware, public probes and
// metrics, then the /api/v1 resource groups.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(logger, cfg.Logging))
	r.Use(middleware.Metrics(cfg.Metrics))
	if cfg.MaxBodySize > 0 {
		r.Use(maxBodySize(cfg.MaxBodySize))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Collector != nil {
		r.GET("/metrics", gin.WrapH(cfg.Collector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}
	api.Use(middleware.Identity())

	if cfg.SystemHandler != nil {
		cfg.SystemHandler.Register(api)
	}
	if cfg.AssessmentHandler != nil {
		cfg.AssessmentHandler.Register(api)
	}
	if cfg.CertificateHandler != nil {
		cfg.CertificateHandler.Register(api)
	}

	return r
}

func maxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
