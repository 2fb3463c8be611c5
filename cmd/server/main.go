// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package main is the entry point for the Taskfeed server.
//
// Taskfeed serves personalized task recommendations for a task
// marketplace and ingests the user-behavior events that feed them.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config.yaml, and
//     environment variables (Koanf v2)
//  2. Stores: PostgreSQL via GORM when a DSN is configured, otherwise
//     in-memory stores (standalone/development mode)
//  3. Cache: Redis, Badger, or in-process, selected by configuration
//  4. Recommendation pipeline: exclusion builder, preference
//     vectorizer, scorer engine, fallback ranker, facade
//  5. Behavior tracker: event ingest, refresh queue, anonymizer
//  6. Offline optimizer: periodic weight re-tuning from feedback
//  7. HTTP server: REST API under a suture supervisor tree
//
// Shutdown is graceful: SIGINT/SIGTERM cancels the supervisor context,
// the HTTP server drains in-flight requests, workers stop, and backend
// connections close.
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

	"github.com/openmarket/taskfeed/internal/api"
	"github.com/openmarket/taskfeed/internal/behavior"
	"github.com/openmarket/taskfeed/internal/cache"
	"github.com/openmarket/taskfeed/internal/config"
	"github.com/openmarket/taskfeed/internal/logging"
	"github.com/openmarket/taskfeed/internal/optimizer"
	"github.com/openmarket/taskfeed/internal/prefs"
	"github.com/openmarket/taskfeed/internal/recommend"
	"github.com/openmarket/taskfeed/internal/recommend/scorers"
	"github.com/openmarket/taskfeed/internal/store"
	"github.com/openmarket/taskfeed/internal/store/memory"
	"github.com/openmarket/taskfeed/internal/store/postgres"
	"github.com/openmarket/taskfeed/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		fatalLog := logging.Logger()
		fatalLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Bool("postgres", cfg.Database.DSN != "").
		Str("cache_backend", cfg.Cache.Backend).
		Int("port", cfg.Server.Port).
		Msg("Configuration loaded")

	// Stores. An empty DSN selects the in-memory stores so the server
	// runs standalone without external dependencies.
	var stores store.Stores
	if cfg.Database.DSN != "" {
		pg, err := postgres.Open(cfg.Database)
		if err != nil {
			fatalLog := logging.Logger()
			fatalLog.Fatal().Err(err).Msg("Failed to open postgres")
		}
		defer func() {
			if err := pg.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing postgres")
			}
		}()
		stores = pg.Stores()
		logging.Info().Msg("PostgreSQL store initialized")
	} else {
		stores = memory.New().Stores()
		logging.Warn().Msg("No database DSN configured, using in-memory stores")
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		fatalLog := logging.Logger()
		fatalLog.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer func() {
		if err := c.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache")
		}
	}()

	// Ranking configuration: start from the configured weights, then
	// let the persisted snapshot (written by the optimizer) take over.
	holder := recommend.NewConfigHolder(stores.Config, &recommend.Snapshot{
		Weights: map[string]float64{
			scorers.NameContent:       cfg.Recommend.Weights.Content,
			scorers.NameCollaborative: cfg.Recommend.Weights.Collaborative,
			scorers.NameFreshness:     cfg.Recommend.Weights.Freshness,
			scorers.NameLocation:      cfg.Recommend.Weights.Location,
			scorers.NamePopularity:    cfg.Recommend.Weights.Popularity,
		},
		DiversityThreshold: cfg.Recommend.DiversityThreshold,
	}, logger)
	if err := holder.Load(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Ranking config load failed, using defaults")
	}

	// The breaker-wrapped task reader is shared by every component on
	// the request path so the whole read side trips together.
	tasks := recommend.NewBreakerTaskReader(stores.Tasks, recommend.BreakerOptions{
		FailureThreshold: cfg.Recommend.BreakerFailures,
		Timeout:          cfg.Recommend.BreakerTimeout,
	}, logger)

	vectorizer := prefs.NewVectorizer(stores.Prefs, stores.History, tasks, c, prefs.Options{
		CacheTTL: cfg.Cache.TTLs.UserVector,
		Horizon:  cfg.Recommend.HistoryHorizon,
		HalfLife: cfg.Recommend.DecayHalfLife,
	}, logger)

	exclusions := recommend.NewExclusionBuilder(tasks, stores.History, c, recommend.ExclusionOptions{
		CacheTTL:  cfg.Cache.TTLs.Exclusion,
		SoftBound: cfg.Recommend.ExclusionSoftBound,
	}, logger)

	loader := scorers.NewLoader(stores.Behavior, stores.Users, c, scorers.LoaderOptions{
		Horizon:       cfg.Recommend.HistoryHorizon,
		PopularityTTL: cfg.Cache.TTLs.Popularity,
	}, logger)

	content := scorers.NewContent(scorers.ContentConfig{})
	set := []scorers.Scorer{
		content,
		scorers.NewCollaborative(cfg.Recommend.ColdThreshold),
		scorers.NewFreshness(),
		scorers.NewLocation(),
		scorers.NewPopularity(cfg.Recommend.PopularitySat),
	}

	engine := recommend.NewEngine(tasks, loader, set, recommend.EngineOptions{
		MinCandidates:   cfg.Recommend.MinCandidates,
		CandidateFactor: cfg.Recommend.CandidateFactor,
		ScoreTimeout:    cfg.Recommend.PredictTimeout,
	}, logger)

	fallback := recommend.NewFallback(tasks, stores.Behavior, logger)

	facade := recommend.NewFacade(
		stores.Users, tasks, c,
		exclusions, vectorizer, engine, fallback,
		holder, content,
		recommend.FacadeOptions{
			HardMaxLimit: cfg.Recommend.HardMaxLimit,
			ResultTTL:    cfg.Cache.TTLs.Recommendation,
		},
		logger,
	)

	// Behavior ingest: refresh queue, preference-refresh worker,
	// tracker, and the nightly anonymizer sweep.
	queue := behavior.NewRefreshQueue(behavior.RefreshQueueOptions{
		MaxDepth: cfg.Behavior.RefreshQueueDepth,
	}, logger)
	defer func() {
		if err := queue.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing refresh queue")
		}
	}()

	refreshWorker := behavior.NewRefreshWorker(queue, vectorizer, cfg.Recommend.PredictTimeout*10, logger)

	tracker := behavior.NewTracker(
		stores.Behavior, tasks, stores.Users, stores.Feedback,
		facade, queue, logger,
	)

	anonymizer := behavior.NewAnonymizer(stores.Behavior, behavior.AnonymizerOptions{
		Horizon:  cfg.Behavior.AnonymizeHorizon,
		Interval: cfg.Behavior.AnonymizeInterval,
	}, logger)

	// HTTP surface.
	handlers := api.NewHandlers(facade, tracker)
	router := api.NewRouter(handlers, api.RouterConfig{
		RateLimitReqs:   cfg.Server.RateLimitReqs,
		RateLimitWindow: cfg.Server.RateLimitWindow,
		CORSOrigins:     cfg.Server.CORSOrigins,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// Supervisor tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	tree.AddWorker(refreshWorker)
	tree.AddWorker(anonymizer)
	if cfg.Optimizer.Enabled {
		tree.AddWorker(optimizer.New(stores.Feedback, tasks, holder, optimizer.Options{
			Interval: cfg.Optimizer.Interval,
			Lookback: cfg.Optimizer.Lookback,
			MaxStep:  cfg.Optimizer.MaxStep,
		}, logger))
	} else {
		logging.Info().Msg("Offline optimizer disabled")
	}
	tree.AddAPI(supervisor.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// Events recorded before the refresh worker subscribes would have
	// their refresh jobs dropped, so hold the ready log until it is up.
	select {
	case <-refreshWorker.Ready():
		logging.Info().Msg("Taskfeed ready")
	case <-time.After(10 * time.Second):
		logging.Warn().Msg("Refresh worker not ready after 10s")
	case <-ctx.Done():
	}

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Taskfeed stopped gracefully")
}
