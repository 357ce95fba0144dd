package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghuser/itemfeed/pkg/app"
	"github.com/ghuser/itemfeed/pkg/config"
	"github.com/ghuser/itemfeed/pkg/logger"
	"github.com/ghuser/itemfeed/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx := context.Background()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	application, err := app.New(cfg, log,
		app.WithRenderer(logRenderer{log: logger.Component(log, "renderer")}),
		app.WithPanicHandler(telemetry.PanicReporter(cfg.FeedMode)),
	)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	simCtx, cancelSim := context.WithCancel(ctx)
	sim := newSimulator(application.Items.Item, log, cfg.SimulatorItems, cfg.SimulatorInterval)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sim.run(simCtx)
	}()
	log.Info("worker started", "interval", cfg.SimulatorInterval, "items", cfg.SimulatorItems, "feed", cfg.FeedMode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...", "pending", application.Feed.Pending())
	cancelSim()
	<-done

	drainCtx, cancelDrain := context.WithTimeout(ctx, cfg.DrainTimeout)
	defer cancelDrain()
	if err := application.Close(drainCtx); err != nil {
		log.Error("failed to close feed", "error", err)
	}
	log.Info("worker stopped")
}
