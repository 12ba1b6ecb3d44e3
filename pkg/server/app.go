package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"BreadthPull/internal/domain/models"
	"BreadthPull/internal/handler/api"
	"BreadthPull/internal/usecase"
	"BreadthPull/pkg/config"
	xhttp "BreadthPull/pkg/http"
	applogger "BreadthPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	svc        *usecase.BreadthService
	httpServer *xhttp.Server
	hub        *api.StreamHub
	log        *applogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	svc *usecase.BreadthService,
	httpServer *xhttp.Server,
	hub *api.StreamHub,
	log *applogger.Logger,
) *App {
	return &App{
		cfg:        cfg,
		svc:        svc,
		httpServer: httpServer,
		hub:        hub,
		log:        log,
	}
}

// Run serves the API, refreshes the report on schedule and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.svc.Start(ctx)
	}()
	a.log.Info("breadth service started",
		applogger.Strings("basket", a.cfg.Breadth.Basket),
		applogger.String("primary", a.cfg.Breadth.Primary),
		applogger.Duration("refresh_interval_ms", a.cfg.Pipeline.RefreshInterval),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	<-done
	return a.shutdown()
}

// RunOnce computes a single report and publishes it to the configured sinks.
func (a *App) RunOnce(ctx context.Context) (*models.Report, error) {
	return a.svc.Refresh(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.hub != nil {
		_ = a.hub.Close()
	}

	a.log.Info("shutdown complete")
	return nil
}
