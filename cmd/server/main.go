// Moodtape - Mood-Conditioned Song Recommendation Service
// Copyright 2026 Moodtape Authors
// SPDX-License-Identifier: MIT
// https://github.com/moodtape/moodtape

// Command server runs the Moodtape recommendation service.
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

	"github.com/moodtape/moodtape/internal/api"
	"github.com/moodtape/moodtape/internal/config"
	"github.com/moodtape/moodtape/internal/logging"
	"github.com/moodtape/moodtape/internal/mood"
	"github.com/moodtape/moodtape/internal/recommend"
	"github.com/moodtape/moodtape/internal/session"
	"github.com/moodtape/moodtape/internal/similarity"
	"github.com/moodtape/moodtape/internal/store"
	"github.com/moodtape/moodtape/internal/supervisor"
	"github.com/moodtape/moodtape/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store_driver", cfg.Store.Driver).
		Str("mood_strategy", cfg.Mood.Strategy).
		Msg("Starting Moodtape")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Feature store, wrapped with the circuit breaker when enabled.
	songStore, err := buildStore(ctx, &cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize song store")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := songStore.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Error closing song store")
		}
	}()

	schema, err := similarity.NewSchema(cfg.Index.Schema)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid feature schema")
	}

	// The first index build is best-effort: an unreachable store at
	// boot leaves an empty handle and the rebuild service fills it in
	// once the store comes back.
	handle := similarity.NewHandle()
	tracker := session.NewTracker(&cfg.Session)
	scorer := mood.NewScorer(&cfg.Mood)
	engine := recommend.NewEngine(
		&cfg.Engine, songStore, scorer, handle, schema, tracker, logging.Logger(),
	)
	if err := engine.RebuildIndex(ctx); err != nil {
		logging.Warn().Err(err).Msg("Initial index build failed, serving degraded until rebuild succeeds")
	}

	handler := api.NewHandler(engine, songStore, tracker, handle)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	// Supervision tree: maintenance loops isolated from the API.
	tree := supervisor.NewTree(
		logging.NewSlogLogger(logging.Logger()),
		supervisor.DefaultTreeConfig(),
	)
	tree.AddMaintenanceService(services.NewJanitorService(tracker, cfg.Session.SweepInterval))
	tree.AddMaintenanceService(services.NewRebuildService(engine, cfg.Index.RebuildInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// buildStore creates the configured store driver and wraps it with
// the circuit breaker when enabled.
func buildStore(ctx context.Context, cfg *config.StoreConfig) (store.Store, error) {
	var base store.Store

	switch cfg.Driver {
	case "mongo":
		mongoStore, err := store.NewMongoStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		base = mongoStore
	case "memory":
		memStore, err := store.NewMemoryStoreFromCatalog(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		base = memStore
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if cfg.Breaker.Enabled {
		return store.NewBreakerStore(base, &cfg.Breaker), nil
	}
	return base, nil
}
