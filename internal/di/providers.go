package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tl-its-umich-edu/m-voice/internal/changes"
	"github.com/tl-its-umich-edu/m-voice/internal/compose"
	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/dialog"
	"github.com/tl-its-umich-edu/m-voice/internal/health"
	"github.com/tl-its-umich-edu/m-voice/internal/logging"
	"github.com/tl-its-umich-edu/m-voice/internal/matcher"
	"github.com/tl-its-umich-edu/m-voice/internal/menu"
	"github.com/tl-its-umich-edu/m-voice/internal/metrics"
	"github.com/tl-its-umich-edu/m-voice/internal/secrets"
	"github.com/tl-its-umich-edu/m-voice/internal/telemetry"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

// ProvideLogger: builds the application logger. With tracing enabled, records carry
// trace_id/span_id.
func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(cfg.Logging, cfg.Telemetry.Enabled)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// ProvideTelemetry: installs the tracer provider.
func ProvideTelemetry(cfg *config.Config, logger *slog.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.NewProvider(context.Background(), cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	if provider.IsEnabled() {
		logger.Info("otel_tracing_enabled", "endpoint", cfg.Telemetry.OTLPEndpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	return provider, nil
}

// ProvideMetrics: registers the collectors with the default registry served on /metrics.
func ProvideMetrics() *metrics.Store {
	return metrics.NewStore(prometheus.DefaultRegisterer)
}

// ProvideVocabulary: loads the reference lists from disk.
func ProvideVocabulary(cfg *config.Config, logger *slog.Logger) (*vocabulary.Store, error) {
	store, err := vocabulary.Load(cfg.Vocabulary.Dir)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	sizes := store.Size()
	logger.Info("vocabulary_loaded",
		"dir", cfg.Vocabulary.Dir,
		"locations", sizes[vocabulary.Location],
		"meals", sizes[vocabulary.Meal],
	)
	return store, nil
}

// ProvideMatcher: builds the term matcher.
func ProvideMatcher(store *vocabulary.Store, logger *slog.Logger) *matcher.Matcher {
	return matcher.New(store, logger)
}

// ProvideTransport: returns the outbound transport, traced when telemetry is on.
func ProvideTransport(tel *telemetry.Provider) http.RoundTripper {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if tel.IsEnabled() {
		return otelhttp.NewTransport(base)
	}
	return base
}

// ProvideSecrets: opens the credential backend.
func ProvideSecrets(cfg *config.Config, logger *slog.Logger) (*secrets.Store, error) {
	store, err := secrets.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open secrets: %w", err)
	}
	return store, nil
}

// ProvideMenuCache: opens the configured menu cache.
func ProvideMenuCache(cfg *config.Config) (menu.Cache, error) {
	cache, err := menu.NewCache(cfg.MenuCache)
	if err != nil {
		return nil, fmt.Errorf("menu cache: %w", err)
	}
	return cache, nil
}

// ProvideMenuClient: builds the upstream menu client. The secret store may override the base URL.
func ProvideMenuClient(
	cfg *config.Config,
	transport http.RoundTripper,
	cache menu.Cache,
	store *secrets.Store,
	m *metrics.Store,
	logger *slog.Logger,
) *menu.Client {
	return menu.NewClient(cfg.Menu,
		menu.WithHTTPClient(&http.Client{Transport: transport}),
		menu.WithBaseURLResolver(store),
		menu.WithCache(cache),
		menu.WithMetrics(m),
		menu.WithLogger(logger),
	)
}

// ProvideOrchestrator: builds the conversation orchestrator.
func ProvideOrchestrator(
	resolver *matcher.Matcher,
	client *menu.Client,
	composer *compose.Composer,
	m *metrics.Store,
	logger *slog.Logger,
) *dialog.Orchestrator {
	return dialog.NewOrchestrator(resolver, client, composer, dialog.WithMetrics(m), dialog.WithLogger(logger))
}

// ProvideLiveSource: builds the live vocabulary client.
func ProvideLiveSource(cfg *config.Config, transport http.RoundTripper, m *metrics.Store, logger *slog.Logger) *changes.LiveClient {
	urls := map[vocabulary.Category]string{
		vocabulary.Location: cfg.Vocabulary.LiveLocationURL,
		vocabulary.Meal:     cfg.Vocabulary.LiveMealURL,
	}
	maxElapsed := time.Duration(cfg.Vocabulary.FetchMaxElapsedMS) * time.Millisecond
	return changes.NewLiveClient(&http.Client{Transport: transport}, urls, maxElapsed, m, logger)
}

// ProvideNotifier: returns the change notifier, or nil when no webhook URL is configured.
func ProvideNotifier(cfg *config.Config, transport http.RoundTripper) changes.Notifier {
	timeout := time.Duration(cfg.Notify.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	notifier := changes.NewWebhookNotifier(&http.Client{Transport: transport, Timeout: timeout}, cfg.Notify.WebhookURL, timeout)
	if notifier == nil {
		return nil
	}
	return notifier
}

// ProvideDetector: builds the change detector.
func ProvideDetector(
	store *vocabulary.Store,
	source *changes.LiveClient,
	notifier changes.Notifier,
	m *metrics.Store,
	logger *slog.Logger,
) *changes.Detector {
	return changes.NewDetector(store, source, notifier, m, logger)
}

// ProvideHealthDependencies: collects what the readiness check inspects.
func ProvideHealthDependencies(cache menu.Cache, store *secrets.Store, vocab *vocabulary.Store) health.Dependencies {
	return health.Dependencies{
		MenuCache:  cache,
		Secrets:    store,
		Vocabulary: vocab,
	}
}
