package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/health"
)

// HomeText: the body of GET /, used as a deployment check.
const HomeText = "Success"

// RuntimeConfigResponse: lists the effective non-secret settings.
type RuntimeConfigResponse struct {
	MenuHost           string  `json:"menu_host"`
	MenuTimeoutSeconds int     `json:"menu_timeout_seconds"`
	MenuRPS            float64 `json:"menu_rps"`
	MenuBurst          int     `json:"menu_burst"`
	MenuCacheBackend   string  `json:"menu_cache_backend"`
	MenuCacheTTL       int     `json:"menu_cache_ttl_seconds"`
	SecretsBackend     string  `json:"secrets_backend"`
	RateLimitRPM       int     `json:"rate_limit_rpm"`
	HTTP2Enabled       bool    `json:"http2_enabled"`
	NotifyConfigured   bool    `json:"notify_configured"`
	TracingEnabled     bool    `json:"tracing_enabled"`
}

func runtimeConfig(cfg *config.Config) RuntimeConfigResponse {
	host := ""
	if u, err := url.Parse(cfg.Menu.BaseURL); err == nil {
		host = u.Host
	}
	return RuntimeConfigResponse{
		MenuHost:           host,
		MenuTimeoutSeconds: cfg.Menu.TimeoutSeconds,
		MenuRPS:            cfg.Menu.RequestsPerSecond,
		MenuBurst:          cfg.Menu.Burst,
		MenuCacheBackend:   cfg.MenuCache.Backend,
		MenuCacheTTL:       cfg.MenuCache.TTLSeconds,
		SecretsBackend:     cfg.Secrets.Backend,
		RateLimitRPM:       cfg.HTTPRateLimit.RequestsPerMinute,
		HTTP2Enabled:       cfg.HTTP.HTTP2Enabled,
		NotifyConfigured:   cfg.Notify.WebhookURL != "",
		TracingEnabled:     cfg.Telemetry.Enabled,
	}
}

// RegisterHealthRoutes: mounts the home, health, config and metrics routes.
// Liveness stays shallow; only /health/ready pings the cache and secret store.
func RegisterHealthRoutes(router gin.IRouter, cfg *config.Config, deps health.Dependencies) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, HomeText)
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, health.Collect(c.Request.Context(), cfg, deps, false))
	})

	router.GET("/health/ready", func(c *gin.Context) {
		payload := health.Collect(c.Request.Context(), cfg, deps, true)
		if payload.Status != "ok" {
			c.JSON(http.StatusServiceUnavailable, payload)
			return
		}
		c.JSON(http.StatusOK, payload)
	})

	router.GET("/health/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, runtimeConfig(cfg))
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
