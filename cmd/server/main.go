// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

// Package main is the entry point for the Viator server.
//
// Viator serves personalized attraction recommendations built from user
// preference profiles and browsing history. The server initializes
// components in the following order:
//
//  1. Configuration: layered settings from defaults, YAML, and env vars
//  2. Primary store: DynamoDB tables for attractions, profiles, history
//  3. Search index: Elasticsearch gateway with breaker and rate limiter
//  4. Cache: Redis with a short TTL over computed recommendation sets
//  5. Engine: the candidate-generation and merge pipeline
//  6. Supervision: HTTP server and refresh scheduler under suture
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the
// supervisor cancels its services, the HTTP server drains in-flight
// requests, and a running batch refresh aborts at the next user
// boundary.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/viator/internal/api"
	"github.com/tomtom215/viator/internal/cache"
	"github.com/tomtom215/viator/internal/config"
	"github.com/tomtom215/viator/internal/logging"
	"github.com/tomtom215/viator/internal/metrics"
	"github.com/tomtom215/viator/internal/recommend"
	"github.com/tomtom215/viator/internal/search"
	"github.com/tomtom215/viator/internal/services"
	"github.com/tomtom215/viator/internal/store"
	"github.com/tomtom215/viator/internal/textnorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("elastic_index", cfg.Elastic.Index).
		Str("redis_addr", cfg.Redis.Addr).
		Str("dynamo_region", cfg.Dynamo.Region).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Primary store.
	dynamoClient, err := store.NewClient(ctx, cfg.Dynamo.Region, cfg.Dynamo.Endpoint)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create dynamodb client")
	}
	db, err := store.New(dynamoClient, cfg.Dynamo.Tables, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize store")
	}

	// Search index.
	index, err := search.NewElasticGateway(search.ElasticConfig{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	}, search.GatewayConfig{
		Index:          cfg.Elastic.Index,
		RatePerSecond:  cfg.Elastic.RatePerSecond,
		Burst:          cfg.Elastic.Burst,
		BreakerTimeout: cfg.Elastic.BreakerTimeout,
		Observer:       metrics.Observer{},
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize search gateway")
	}

	// Recommendation cache.
	redisCache, err := cache.New(ctx, cache.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
		TTL:  cfg.Redis.TTL,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer func() {
		if err := redisCache.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing redis client")
		}
	}()

	norm := textnorm.New()

	engine, err := recommend.NewEngine(recommend.Deps{
		Store:      db,
		Index:      index,
		Cache:      redisCache,
		Normalizer: norm,
		Observer:   metrics.Observer{},
	}, &cfg.Recommend, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize recommendation engine")
	}

	// HTTP surface.
	handler := api.NewHandler(engine, db, index, redisCache, norm, api.HandlerConfig{
		RecommendTimeout: cfg.Server.RecommendTimeout,
	}, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimit:       cfg.Server.RateLimit,
		RateLimitWindow: cfg.Server.RateLimitWindow,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Supervision.
	supervisor := suture.NewSimple("viator")
	supervisor.Add(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	if cfg.Refresh.Enabled {
		supervisor.Add(services.NewRefreshService(engine, services.RefreshServiceConfig{
			Interval: cfg.Refresh.Interval,
			OnStart:  cfg.Refresh.OnStart,
		}, logger))
	}

	logging.Info().
		Str("addr", server.Addr).
		Bool("refresh_enabled", cfg.Refresh.Enabled).
		Msg("starting viator")

	if err := supervisor.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("supervisor exited")
	}
	logging.Info().Msg("shutdown complete")
}
