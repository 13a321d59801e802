package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	// DefaultMenuURL is the upstream print view that returns the menu tree as JSON.
	DefaultMenuURL = "http://api.studentlife.umich.edu/menu/xml2print.php?controller=&view=json"
	// DefaultLiveLocationURL lists the locations the upstream currently serves.
	DefaultLiveLocationURL = "http://api.studentlife.umich.edu/menu/menu_generator/location.php"
	// DefaultLiveMealURL lists the meals the upstream currently serves.
	DefaultLiveMealURL = "http://api.studentlife.umich.edu/menu/menu_generator/meal.php"
)

var (
	configOnce  sync.Once
	configValue *Config
	configErr   error
)

// Load: reads environment based settings once per process. A .env file in the
// working directory is applied first without overriding the real environment.
// Malformed values are replaced by their defaults; ProvideConfig reports them.
func Load() *Config {
	configOnce.Do(func() {
		_ = godotenv.Load()
		configValue, configErr = buildConfig(newEnvReader())
	})
	return configValue
}

// ProvideConfig: loads and validates the configuration.
func ProvideConfig() (*Config, error) {
	cfg := Load()
	if cfg == nil {
		return nil, errors.New("config not initialized")
	}
	if configErr != nil {
		return nil, fmt.Errorf("read environment: %w", configErr)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate: checks settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Vocabulary.Dir) == "" {
		return errors.New("vocabulary dir is empty")
	}
	if strings.TrimSpace(c.Menu.BaseURL) == "" {
		return errors.New("menu base url is empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.Menu.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid menu timeout: %d", c.Menu.TimeoutSeconds)
	}
	switch c.MenuCache.Backend {
	case "none", "memory", "valkey":
	default:
		return fmt.Errorf("unknown menu cache backend: %s", c.MenuCache.Backend)
	}
	switch c.Secrets.Backend {
	case "env":
		if c.HTTPAuth.User == "" || c.HTTPAuth.Password == "" {
			return errors.New("env secrets backend requires WEBHOOK_USER and WEBHOOK_PASS")
		}
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown secrets backend: %s", c.Secrets.Backend)
	}
	return nil
}

// LogEnvStatus: logs the effective settings with secrets masked.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	logger.Debug(
		"env_status",
		"env_file", fileExists(".env"),
		"vocabulary_dir", cfg.Vocabulary.Dir,
		"menu_url", cfg.Menu.BaseURL,
		"menu_timeout", cfg.Menu.TimeoutSeconds,
		"menu_cache", cfg.MenuCache.Backend,
		"secrets_backend", cfg.Secrets.Backend,
		"webhook_user", maskSecret(cfg.HTTPAuth.User),
		"notify_webhook", maskSecret(cfg.Notify.WebhookURL),
		"otel", cfg.Telemetry.Enabled,
	)

	if cfg.Notify.WebhookURL == "" {
		logger.Warn("env_missing_notify_webhook")
	}
}

func buildConfig(r *envReader) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:      r.str("LOG_LEVEL", "info"),
			LogDir:     r.str("LOG_DIR", ""),
			MaxSizeMB:  r.atLeast("LOG_FILE_MAX_SIZE_MB", 1, 1),
			MaxBackups: r.atLeast("LOG_FILE_MAX_BACKUPS", 30, 0),
			MaxAgeDays: r.atLeast("LOG_FILE_MAX_AGE_DAYS", 7, 0),
			Compress:   r.flag("LOG_FILE_COMPRESS", true),
		},
		HTTP: HTTPConfig{
			Host:         r.str("HTTP_HOST", "0.0.0.0"),
			Port:         r.integer("HTTP_PORT", 8080),
			HTTP2Enabled: r.flag("HTTP2_ENABLED", false),
		},
		HTTPAuth: HTTPAuthConfig{
			User:     r.str("WEBHOOK_USER", ""),
			Password: r.str("WEBHOOK_PASS", ""),
		},
		HTTPRateLimit: HTTPRateLimitConfig{
			RequestsPerMinute: r.atLeast("HTTP_RATE_LIMIT_RPM", 0, 0),
			CacheSize:         r.atLeast("HTTP_RATE_LIMIT_CACHE_SIZE", 10000, 1),
			CacheTTLSeconds:   r.atLeast("HTTP_RATE_LIMIT_CACHE_TTL_SECONDS", 120, 1),
		},
		CORS: CORSConfig{
			AllowOrigins: r.list("CORS_ALLOW_ORIGINS"),
		},
		Menu: MenuConfig{
			BaseURL:           r.str("MENU_API_URL", DefaultMenuURL),
			TimeoutSeconds:    r.atLeast("MENU_API_TIMEOUT_SECONDS", 10, 1),
			RequestsPerSecond: r.number("MENU_API_RPS", 5),
			Burst:             r.atLeast("MENU_API_BURST", 2, 1),
		},
		MenuCache: MenuCacheConfig{
			Backend:      r.lower("MENU_CACHE_BACKEND", "none"),
			URL:          r.str("MENU_CACHE_URL", "redis://localhost:6379"),
			TTLSeconds:   r.atLeast("MENU_CACHE_TTL_SECONDS", 300, 1),
			MaxEntries:   r.atLeast("MENU_CACHE_MAX_ENTRIES", 512, 1),
			DisableCache: r.flag("MENU_CACHE_DISABLE_CLIENT_CACHE", true),
		},
		Vocabulary: VocabularyConfig{
			Dir:               r.str("VOCABULARY_DIR", "data/vocabulary"),
			LiveLocationURL:   r.str("VOCABULARY_LOCATION_URL", DefaultLiveLocationURL),
			LiveMealURL:       r.str("VOCABULARY_MEAL_URL", DefaultLiveMealURL),
			FetchMaxElapsedMS: r.atLeast("VOCABULARY_FETCH_MAX_ELAPSED_MS", 15000, 0),
		},
		Notify: NotifyConfig{
			WebhookURL:     r.str("NOTIFY_WEBHOOK_URL", ""),
			TimeoutSeconds: r.atLeast("NOTIFY_TIMEOUT_SECONDS", 10, 1),
		},
		Secrets: SecretsConfig{
			Backend:         r.lower("SECRETS_BACKEND", "env"),
			SQLitePath:      r.str("SECRETS_SQLITE_PATH", "secrets.db"),
			CacheTTLSeconds: r.atLeast("SECRETS_CACHE_TTL_SECONDS", 60, 1),
		},
		Database: DatabaseConfig{
			Host:     r.str("DB_HOST", "localhost"),
			Port:     r.integer("DB_PORT", 5432),
			Name:     r.str("DB_NAME", "mvoice"),
			User:     r.str("DB_USER", "mvoice"),
			Password: r.str("DB_PASSWORD", ""),
			MaxPool:  r.atLeast("DB_MAX_POOL", 5, 1),
		},
		Telemetry: r.telemetry(),
	}
	return cfg, r.err()
}
