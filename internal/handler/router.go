package handler

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/health"
	"github.com/tl-its-umich-edu/m-voice/internal/middleware"
	"github.com/tl-its-umich-edu/m-voice/internal/secrets"
)

// NewRouter: builds the HTTP router.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	credentials secrets.Provider,
	webhookHandler *WebhookHandler,
	cronHandler *CronHandler,
	deps health.Dependencies,
) *gin.Engine {
	setGinMode(cfg.Logging.Level)

	router := gin.New()
	if cfg.Telemetry.Enabled {
		router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
		logger.Info("otel_http_middleware_enabled", "service", cfg.Telemetry.ServiceName)
	}
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.Recovery(),
	)
	if corsMiddleware := newCORSMiddleware(cfg.CORS); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	router.Use(
		newGzipMiddleware(),
		middleware.RateLimit(cfg),
	)

	RegisterHealthRoutes(router, cfg, deps)
	webhookHandler.RegisterRoutes(router, middleware.BasicAuth(credentials, logger))
	cronHandler.RegisterRoutes(router, middleware.CronAuth(credentials, logger))

	return router
}

func newCORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	if len(cfg.AllowOrigins) == 0 {
		return nil
	}
	corsConfig := cors.DefaultConfig()
	if slices.Contains(cfg.AllowOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	return cors.New(corsConfig)
}

func newGzipMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithCustomShouldCompressFn(func(c *gin.Context) bool {
		// Scrapers and health checkers negotiate their own encoding.
		switch c.Request.URL.Path {
		case "/", "/health", "/health/ready", "/health/config", "/metrics":
			return false
		}
		return strings.Contains(c.GetHeader("Accept-Encoding"), "gzip")
	}))
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
