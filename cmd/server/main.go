package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
	"github.com/tl-its-umich-edu/m-voice/internal/di"
)

// drainTimeout: bounds both in-flight request draining and resource cleanup.
const drainTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "m-voice: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app, err := di.InitializeApp()
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		app.Close(ctx)
	}()

	config.LogEnvStatus(app.Config, app.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		app.Logger.Info("http_server_start",
			"addr", app.Server.Addr,
			"http2", app.Config.HTTP.HTTP2Enabled,
		)
		listenErr <- app.Server.ListenAndServe()
	}()

	select {
	case err = <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		app.Logger.Error("http_server_failed", "err", err)
		return err
	case <-ctx.Done():
	}

	app.Logger.Info("http_server_draining", "timeout", drainTimeout)
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := app.Server.Shutdown(drainCtx); err != nil {
		app.Logger.Error("http_server_shutdown_failed", "err", err)
		_ = app.Server.Close()
	}
	if err := <-listenErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	app.Logger.Info("http_server_stopped")
	return nil
}
