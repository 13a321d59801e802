package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// LoggingConfig: logging settings.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPConfig: HTTP server settings.
type HTTPConfig struct {
	Host         string
	Port         int
	HTTP2Enabled bool
}

// HTTPAuthConfig: basic auth credentials used when the secret backend is env.
type HTTPAuthConfig struct {
	User     string
	Password string
}

// HTTPRateLimitConfig: per-identity request limit for protected paths.
type HTTPRateLimitConfig struct {
	RequestsPerMinute int
	CacheSize         int
	CacheTTLSeconds   int
}

// CORSConfig: allowed browser origins.
type CORSConfig struct {
	AllowOrigins []string
}

// MenuConfig: upstream dining menu API settings.
type MenuConfig struct {
	BaseURL           string
	TimeoutSeconds    int
	RequestsPerSecond float64
	Burst             int
}

// Timeout: returns the per-request upstream timeout.
func (m MenuConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// MenuCacheConfig: optional cache for upstream menu payloads.
type MenuCacheConfig struct {
	Backend      string // none, memory, valkey
	URL          string
	TTLSeconds   int
	MaxEntries   int
	DisableCache bool
}

// TTL: returns the cache entry lifetime.
func (m MenuCacheConfig) TTL() time.Duration {
	return time.Duration(m.TTLSeconds) * time.Second
}

// VocabularyConfig: reference list location and live vocabulary endpoints.
type VocabularyConfig struct {
	Dir               string
	LiveLocationURL   string
	LiveMealURL       string
	FetchMaxElapsedMS int
}

// NotifyConfig: change notification webhook.
type NotifyConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

// SecretsConfig: where the webhook credentials and API overrides live.
type SecretsConfig struct {
	Backend         string // env, postgres, sqlite
	SQLitePath      string
	CacheTTLSeconds int
}

// DatabaseConfig: postgres connection for the secrets backend.
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	MaxPool  int
}

// DSN: returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	u := &url.URL{
		Scheme: "postgresql",
		Host:   host,
		Path:   "/" + d.Name,
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	} else {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// TelemetryConfig: OpenTelemetry tracing settings.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRate     float64
}

// Config: application configuration.
type Config struct {
	Logging       LoggingConfig
	HTTP          HTTPConfig
	HTTPAuth      HTTPAuthConfig
	HTTPRateLimit HTTPRateLimitConfig
	CORS          CORSConfig
	Menu          MenuConfig
	MenuCache     MenuCacheConfig
	Vocabulary    VocabularyConfig
	Notify        NotifyConfig
	Secrets       SecretsConfig
	Database      DatabaseConfig
	Telemetry     TelemetryConfig
}
