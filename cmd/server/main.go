// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package main is the entry point for the Dual Gravity scoring engine.
//
// Dual Gravity powers a two-player competitive music discovery game:
// each player pulls the shared listening session toward a secret target
// artist, and the engine scores candidate tracks by how much closer or
// further they move the session relative to each player's pull.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load via koanf v2 (defaults, YAML, DG_ env)
//  2. Artist profile store: DuckDB, single writer
//  3. Healing queue: BadgerDB outbox with a Watermill wake-up channel
//  4. Catalog client: rate-limited, retried, circuit-broken HTTP
//  5. Gravity tracker, candidate pipeline, and scorer
//  6. Supervisor tree: healing worker and HTTP server under suture
//
// The stage endpoints forward the caller's bearer credential to the
// upstream catalog API on every request; the engine stores no
// credentials of its own.
//
// The server shuts down gracefully on SIGINT and SIGTERM: the listener
// drains in-flight requests, the healing worker stops, and the stores
// close in reverse initialization order.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/dualgravity/internal/api"
	"github.com/tomtom215/dualgravity/internal/cache"
	"github.com/tomtom215/dualgravity/internal/catalog"
	"github.com/tomtom215/dualgravity/internal/config"
	"github.com/tomtom215/dualgravity/internal/gravity"
	"github.com/tomtom215/dualgravity/internal/healing"
	"github.com/tomtom215/dualgravity/internal/logging"
	"github.com/tomtom215/dualgravity/internal/pipeline"
	"github.com/tomtom215/dualgravity/internal/scoring"
	"github.com/tomtom215/dualgravity/internal/store"
	"github.com/tomtom215/dualgravity/internal/supervisor"
	"github.com/tomtom215/dualgravity/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging)
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("catalog_url", cfg.Catalog.BaseURL).
		Bool("healing_enabled", cfg.Healing.Enabled).
		Msg("Starting Dual Gravity")

	profiles, err := store.New(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open artist profile store")
	}
	defer func() {
		if err := profiles.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing profile store")
		}
	}()

	catalogClient := catalog.NewHTTPClient(cfg.Catalog)
	profileCache := cache.NewProfileLRU(cfg.Cache.Capacity, cfg.Cache.TTL)
	tracker := gravity.NewTracker(cfg.Sessions.MaxAge)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	var healer *healing.Queue
	if cfg.Healing.Enabled {
		opts := badger.DefaultOptions(cfg.Healing.Path).WithLogger(nil)
		healDB, err := badger.Open(opts)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open healing outbox")
		}
		defer func() {
			if err := healDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing healing outbox")
			}
		}()

		healer = healing.NewQueue(healDB, catalogClient, profiles)
		defer func() {
			if err := healer.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing healing queue")
			}
		}()
		tree.AddEngineService(healing.NewWorker(healer, cfg.Healing.Worker))
	}

	acquirer := pipeline.NewAcquirer(cfg.Pipeline, catalogClient, profiles, profileCache, healer, tracker)
	server := api.NewServer(acquirer, scoring.NewScorer(nil), catalogClient, profiles, healer, tracker)

	mw := api.DefaultMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mw.RateLimitRequests = cfg.Server.RateLimitRequests
	mw.RateLimitWindow = cfg.Server.RateLimitWindow
	mw.RateLimitDisabled = cfg.Server.RateLimitDisabled

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(mw),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPService(httpServer, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", httpServer.Addr).Msg("Listening")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}
	logging.Info().Msg("Shutdown complete")
}
