// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/viator/internal/search"
)

// Note: this package depends only on the query model in internal/search.
// Store, index, and cache clients are injected through the interfaces in
// types.go so tests run against in-memory fakes.

// Engine drives the recommendation pipeline: the interactive cache-aside
// path for one user and the fan-out batch-refresh path for all users.
// Safe for concurrent use.
type Engine struct {
	cfg    *Config
	store  Store
	index  Index
	cache  Cache
	norm   TagNormalizer
	obs    Observer
	logger zerolog.Logger

	// newRand returns a fresh random source per call. Production seeds
	// from the wall clock; tests inject a fixed seed. Per-call sources
	// keep concurrent per-user computations independent.
	newRand func() *rand.Rand
}

// Deps bundles the engine's injected collaborators.
type Deps struct {
	Store      Store
	Index      Index
	Cache      Cache
	Normalizer TagNormalizer

	// Observer is optional; nil disables metrics.
	Observer Observer

	// Rand is optional; nil uses wall-clock seeding.
	Rand func() *rand.Rand
}

// NewEngine creates a recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(deps Deps, cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Store == nil || deps.Index == nil || deps.Cache == nil || deps.Normalizer == nil {
		return nil, errors.New("recommend: store, index, cache, and normalizer are required")
	}

	obs := deps.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	newRand := deps.Rand
	if newRand == nil {
		newRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // sampling and shuffling only
		}
	}

	return &Engine{
		cfg:     cfg,
		store:   deps.Store,
		index:   deps.Index,
		cache:   deps.Cache,
		norm:    deps.Normalizer,
		obs:     obs,
		logger:  logger.With().Str("component", "recommend").Logger(),
		newRand: newRand,
	}, nil
}

// Recommend returns up to ReturnCount recommendations for username.
//
// A valid cache entry is served directly; otherwise the full pipeline runs
// and its result is written back before returning. Presentation order is
// re-randomized on every call, cache hit or not, so repeated requests
// against the same cache entry still vary. A user without a profile gets
// an empty list, not an error. Cache failures are logged and bypassed.
func (e *Engine) Recommend(ctx context.Context, username string) ([]AttractionRecord, error) {
	rng := e.newRand()
	logger := e.logger.With().Str("user", username).Logger()

	if cached, ok := e.readCache(ctx, username, logger); ok {
		e.obs.RequestServed(true)
		logger.Debug().Int("cached", len(cached)).Msg("served from cache")
		return e.present(rng, cached), nil
	}
	e.obs.RequestServed(false)

	profile, err := e.store.Profile(ctx, username)
	if errors.Is(err, ErrNotFound) {
		logger.Debug().Msg("no profile, returning empty recommendations")
		return []AttractionRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile for %q: %w", username, err)
	}

	records, err := e.compute(ctx, *profile, rng)
	if err != nil {
		return nil, err
	}

	// Fail-open: a cache write failure degrades reuse, not the response.
	if payload, err := json.Marshal(records); err != nil {
		logger.Warn().Err(err).Msg("encode recommendations for cache failed")
	} else if err := e.cache.Set(ctx, username, payload); err != nil {
		logger.Warn().Err(err).Msg("cache write failed")
	}

	logger.Debug().Int("computed", len(records)).Msg("recommendations computed")
	return e.present(rng, records), nil
}

// readCache attempts a cache hit. Errors are logged and reported as a
// miss so an unresponsive cache never blocks the pipeline.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) readCache(ctx context.Context, username string, logger zerolog.Logger) ([]AttractionRecord, bool) {
	payload, found, err := e.cache.Get(ctx, username)
	if err != nil {
		logger.Warn().Err(err).Msg("cache read failed, computing directly")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var records []AttractionRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		logger.Warn().Err(err).Msg("corrupt cache entry, computing directly")
		return nil, false
	}
	return records, true
}

// present re-randomizes ordering and truncates to the public return count.
func (e *Engine) present(rng *rand.Rand, records []AttractionRecord) []AttractionRecord {
	out := make([]AttractionRecord, len(records))
	copy(out, records)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if len(out) > e.cfg.ReturnCount {
		out = out[:e.cfg.ReturnCount]
	}
	return out
}

// compute runs candidate generation, merging, and enrichment for one
// profile.
func (e *Engine) compute(ctx context.Context, profile UserProfile, rng *rand.Rand) ([]AttractionRecord, error) {
	sets, err := e.index.MultiSearch(ctx, []search.Request{
		BuildPreferenceQuery(profile, e.norm, rng.Int63(), e.cfg.PreferencePageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("preference search: %w", err)
	}
	if len(sets) != 1 {
		return nil, fmt.Errorf("preference search returned %d sets, want 1", len(sets))
	}

	histIDs, err := e.expandHistory(ctx, profile.Username, rng)
	if err != nil {
		return nil, fmt.Errorf("history expansion: %w", err)
	}

	ids := mergeCandidates(rng, sets[0], histIDs,
		e.cfg.PreferenceSampleLimit, e.cfg.HistorySampleLimit, e.cfg.BatchGetLimit)
	return e.enrich(ctx, ids)
}

// RefreshAll recomputes recommendations for every profile in the store and
// overwrites the cache for all of them in one batched write.
//
// Preference candidates for the whole batch resolve in a single
// multi-search round trip; the per-user remainder of the pipeline fans out
// across a bounded worker pool. One user's failure is logged, reported,
// and skipped; cancelling ctx aborts the whole job.
func (e *Engine) RefreshAll(ctx context.Context) (*RefreshReport, error) {
	profiles, err := e.store.Profiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan profiles: %w", err)
	}

	report := &RefreshReport{Total: len(profiles)}
	if len(profiles) == 0 {
		return report, nil
	}

	seedRng := e.newRand()
	reqs := make([]search.Request, 0, len(profiles))
	for _, p := range profiles {
		reqs = append(reqs, BuildPreferenceQuery(p, e.norm, seedRng.Int63(), e.cfg.PreferencePageSize))
	}
	prefSets, err := e.index.MultiSearch(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("preference multi-search: %w", err)
	}
	if len(prefSets) != len(profiles) {
		return nil, fmt.Errorf("preference multi-search returned %d sets for %d profiles", len(prefSets), len(profiles))
	}

	var (
		mu       sync.Mutex
		keys     []string
		payloads [][]byte
	)
	fail := func(username string, err error) {
		e.obs.RefreshUserFailed()
		e.logger.Error().Err(err).Str("user", username).Msg("refresh failed for user")
		mu.Lock()
		report.Failed = append(report.Failed, username)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.RefreshConcurrency)
	for i, p := range profiles {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rng := e.newRand()
			histIDs, err := e.expandHistory(ctx, p.Username, rng)
			if err != nil {
				fail(p.Username, err)
				return nil
			}

			ids := mergeCandidates(rng, prefSets[i], histIDs,
				e.cfg.PreferenceSampleLimit, e.cfg.HistorySampleLimit, e.cfg.BatchGetLimit)
			records, err := e.enrich(ctx, ids)
			if err != nil {
				fail(p.Username, err)
				return nil
			}

			payload, err := json.Marshal(records)
			if err != nil {
				fail(p.Username, err)
				return nil
			}

			mu.Lock()
			keys = append(keys, p.Username)
			payloads = append(payloads, payload)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("refresh cancelled: %w", err)
	}

	report.Refreshed = len(keys)
	if len(keys) > 0 {
		// Fail-open: the computed results stand even if the cache write
		// fails; affected users recompute on their next request.
		if err := e.cache.SetBatch(ctx, keys, payloads); err != nil {
			e.logger.Warn().Err(err).Int("users", len(keys)).Msg("batched cache write failed")
		}
	}

	e.logger.Info().
		Int("total", report.Total).
		Int("refreshed", report.Refreshed).
		Int("failed", len(report.Failed)).
		Msg("batch refresh complete")
	return report, nil
}
