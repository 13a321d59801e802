package di

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/menu"
	"github.com/tl-its-umich-edu/m-voice/internal/secrets"
	"github.com/tl-its-umich-edu/m-voice/internal/telemetry"
)

// App: bundles the running components.
type App struct {
	Server    *http.Server
	Logger    *slog.Logger
	Config    *config.Config
	Telemetry *telemetry.Provider
	MenuCache menu.Cache
	Secrets   *secrets.Store
}

// NewApp: creates an App.
func NewApp(
	server *http.Server,
	logger *slog.Logger,
	cfg *config.Config,
	tel *telemetry.Provider,
	menuCache menu.Cache,
	secretStore *secrets.Store,
) *App {
	return &App{
		Server:    server,
		Logger:    logger,
		Config:    cfg,
		Telemetry: tel,
		MenuCache: menuCache,
		Secrets:   secretStore,
	}
}

// Close: releases connections and flushes pending spans.
func (a *App) Close(ctx context.Context) {
	if a.MenuCache != nil {
		a.MenuCache.Close()
	}
	if a.Secrets != nil {
		a.Secrets.Close()
	}
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("telemetry_shutdown_failed", "err", err)
		}
	}
}
