//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/tl-its-umich-edu/m-voice/internal/changes"
	"github.com/tl-its-umich-edu/m-voice/internal/compose"
	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/dialog"
	"github.com/tl-its-umich-edu/m-voice/internal/handler"
	"github.com/tl-its-umich-edu/m-voice/internal/secrets"
	"github.com/tl-its-umich-edu/m-voice/internal/server"
)

func InitializeApp() (*App, error) {
	wire.Build(
		config.ProvideConfig,
		ProvideLogger,
		ProvideTelemetry,
		ProvideMetrics,
		ProvideTransport,
		ProvideVocabulary,
		ProvideMatcher,
		ProvideSecrets,
		ProvideMenuCache,
		compose.New,
		ProvideMenuClient,
		ProvideOrchestrator,
		ProvideLiveSource,
		ProvideNotifier,
		ProvideDetector,
		ProvideHealthDependencies,
		wire.Bind(new(handler.Dialog), new(*dialog.Orchestrator)),
		wire.Bind(new(handler.Detector), new(*changes.Detector)),
		wire.Bind(new(secrets.Provider), new(*secrets.Store)),
		handler.NewWebhookHandler,
		handler.NewCronHandler,
		handler.NewRouter,
		server.NewHTTPServer,
		NewApp,
	)
	return nil, nil
}
