package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mid "PoolWatch/internal/middleware"
	"PoolWatch/internal/usecase"
	"PoolWatch/pkg/config"
	xhttp "PoolWatch/pkg/http"
	applogger "PoolWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	watcher    *usecase.Watcher
	emitter    *mid.BufferedEmitter
	handler    xhttp.Handler
	httpServer *xhttp.Server
	log        *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	watcher *usecase.Watcher,
	emitter *mid.BufferedEmitter,
	handler xhttp.Handler,
	log *applogger.Logger,
) *App {
	return &App{
		cfg:     cfg,
		watcher: watcher,
		emitter: emitter,
		handler: handler,
		log:     log,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.emitter.Start(ctx)
	a.watcher.Start(ctx)
	a.log.Info("watcher started",
		applogger.Int("endpoints", len(a.cfg.RPC.Endpoints)),
		applogger.Int("exchanges", len(a.cfg.Fetcher.Exchanges)),
		applogger.Bool("stream", a.cfg.Stream.Enabled),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.watcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.emitter.Close(); err != nil {
		a.log.Warn("emitter close error", applogger.Error(err))
	}
	a.log.RemoveCollector()

	a.log.Info("shutdown complete")
	return nil
}
