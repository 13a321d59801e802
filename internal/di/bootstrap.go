//go:build !wireinject

package di

import (
	"fmt"

	"github.com/tl-its-umich-edu/m-voice/internal/compose"
	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/handler"
	"github.com/tl-its-umich-edu/m-voice/internal/server"
)

// InitializeApp: wires the application and returns it ready to serve.
func InitializeApp() (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	tel, err := ProvideTelemetry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	metricsStore := ProvideMetrics()
	transport := ProvideTransport(tel)

	vocab, err := ProvideVocabulary(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("vocabulary: %w", err)
	}

	secretStore, err := ProvideSecrets(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}

	menuCache, err := ProvideMenuCache(cfg)
	if err != nil {
		secretStore.Close()
		return nil, fmt.Errorf("menu cache: %w", err)
	}

	composer, err := compose.New()
	if err != nil {
		menuCache.Close()
		secretStore.Close()
		return nil, fmt.Errorf("composer: %w", err)
	}

	menuClient := ProvideMenuClient(cfg, transport, menuCache, secretStore, metricsStore, logger)
	orchestrator := ProvideOrchestrator(ProvideMatcher(vocab, logger), menuClient, composer, metricsStore, logger)
	webhookHandler := handler.NewWebhookHandler(orchestrator, logger)

	source := ProvideLiveSource(cfg, transport, metricsStore, logger)
	detector := ProvideDetector(vocab, source, ProvideNotifier(cfg, transport), metricsStore, logger)
	cronHandler := handler.NewCronHandler(detector, logger)

	deps := ProvideHealthDependencies(menuCache, secretStore, vocab)
	router := handler.NewRouter(cfg, logger, secretStore, webhookHandler, cronHandler, deps)
	httpServer := server.NewHTTPServer(cfg, router)

	return NewApp(httpServer, logger, cfg, tel, menuCache, secretStore), nil
}
