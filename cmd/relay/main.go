package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbaird/twitrelay/internal/config"
	"github.com/mbaird/twitrelay/internal/discord"
	"github.com/mbaird/twitrelay/internal/domain"
	"github.com/mbaird/twitrelay/internal/httpserver"
	"github.com/mbaird/twitrelay/internal/metric"
	"github.com/mbaird/twitrelay/internal/sqlite"
	"github.com/mbaird/twitrelay/internal/stream"
	"github.com/mbaird/twitrelay/internal/unfurl"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("store opened", "path", cfg.DatabasePath)

	registry := prometheus.NewRegistry()
	metrics := metric.New(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	unfurler := unfurl.NewClient(cfg.UnfurlTimeout, metrics)
	dispatcher := discord.NewDispatcher("", func(channelID string) (string, bool) {
		return store.WebhookForChannel(ctx, channelID)
	}, logger)

	recon := domain.NewReconstructor(unfurler, logger)
	composer := domain.NewComposer(recon, logger)
	relationships := domain.NewRelationships(composer, logger)
	service := domain.NewService(store, store, relationships, dispatcher, metrics, logger)

	connector := stream.NewWebsocketConnector(cfg.StreamURL, cfg.BearerToken, logger)
	backoff := stream.NewBackoff(cfg.BackoffInitial, cfg.BackoffMax)
	manager := stream.NewManager(connector, store, service, backoff, metrics, logger, func(serr *stream.Error) {
		// Unrecoverable rate/auth condition: terminate and let the
		// supervisor restart us.
		logger.Error("terminating on fatal provider error", "error", serr)
		os.Exit(1)
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := manager.CreateStream(ctx); err != nil {
		logger.Error("initial stream connect failed, retrying in background", "error", err)
	}

	maintainer := domain.NewMaintainer(store, 100, 0, logger)
	go maintainer.Run(ctx, cfg.MaintenanceInterval)

	server := httpserver.NewServer(cfg.Port, func() string {
		return manager.State().String()
	}, registry, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server exited with error", "error", err)
		}
	}()

	logger.Info("relay started", "port", cfg.Port, "stream_url", cfg.StreamURL)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	manager.Shutdown()
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down admin server", "error", err)
	}

	return nil
}
