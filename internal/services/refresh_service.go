// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

// Package services provides suture service wrappers for the long-running
// application components.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/viator/internal/metrics"
	"github.com/tomtom215/viator/internal/recommend"
)

// Refresher is the slice of the recommendation engine the scheduler
// drives. Defined here so the service works without a direct engine
// dependency; tests use a fake.
type Refresher interface {
	RefreshAll(ctx context.Context) (*recommend.RefreshReport, error)
}

// RefreshServiceConfig holds the batch-refresh schedule.
type RefreshServiceConfig struct {
	// Interval is how often the full cache refresh runs.
	Interval time.Duration

	// OnStart triggers one refresh immediately instead of waiting a
	// full interval.
	OnStart bool
}

// RefreshService periodically recomputes every user's cached
// recommendations. A failed run is logged and retried on the next tick;
// the service itself only exits on context cancellation, so the
// supervisor never restart-loops over transient backend outages.
type RefreshService struct {
	refresher Refresher
	config    RefreshServiceConfig
	logger    zerolog.Logger
	name      string
}

// NewRefreshService creates a refresh scheduler service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRefreshService(refresher Refresher, cfg RefreshServiceConfig, logger zerolog.Logger) *RefreshService {
	if cfg.Interval <= 0 {
		cfg.Interval = 12 * time.Hour
	}
	return &RefreshService{
		refresher: refresher,
		config:    cfg,
		logger:    logger.With().Str("service", "refresh").Logger(),
		name:      "refresh-service",
	}
}

// Serve implements the suture.Service interface.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("on_start", s.config.OnStart).
		Dur("interval", s.config.Interval).
		Msg("refresh service starting")

	if s.config.OnStart {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("refresh service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// run performs one refresh cycle, logging rather than returning the
// outcome so a bad cycle never kills the schedule.
func (s *RefreshService) run(ctx context.Context) {
	start := time.Now()
	s.logger.Info().Msg("starting batch refresh")

	report, err := s.refresher.RefreshAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("batch refresh failed")
		return
	}

	// Per-user failures were already counted by the engine's observer.
	metrics.RecordRefreshRun(time.Since(start), report.Refreshed)
	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int("total", report.Total).
		Int("refreshed", report.Refreshed).
		Int("failed", len(report.Failed)).
		Msg("batch refresh complete")
}

// String returns the service name for supervisor logging.
func (s *RefreshService) String() string {
	return s.name
}
