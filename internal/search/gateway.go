// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package search

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Hit is a single search result with its requested field projections.
// Field values arrive as arrays even for scalar fields.
type Hit struct {
	ID     string              `json:"_id"`
	Fields map[string][]string `json:"fields"`
}

// IDSet is a deduplicated set of attraction identifiers. Never ordered.
type IDSet map[string]struct{}

// Add inserts ids into the set.
func (s IDSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// transport performs raw round trips against the index. Production uses
// the Elasticsearch client; tests substitute a fake.
type transport interface {
	search(ctx context.Context, body []byte) ([]byte, error)
	msearch(ctx context.Context, body []byte) ([]byte, error)
}

// QueryObserver receives the outcome of every index round trip. Must be
// safe for concurrent use.
type QueryObserver interface {
	QueryExecuted(operation string, duration time.Duration, err error)
}

type nopQueryObserver struct{}

func (nopQueryObserver) QueryExecuted(string, time.Duration, error) {}

// GatewayConfig tunes the gateway's protective layers.
type GatewayConfig struct {
	// Index is the index name targeted by every query.
	Index string

	// RatePerSecond caps outgoing index calls; zero disables limiting.
	// The batch-refresh path fans out aggressively, so production keeps
	// a ceiling on index load here rather than in each caller.
	RatePerSecond float64

	// Burst is the limiter burst size. Defaults to 1 when rate limiting
	// is enabled.
	Burst int

	// BreakerTimeout is how long the circuit stays open after tripping.
	BreakerTimeout time.Duration

	// Observer receives round-trip timings and errors. Nil disables
	// observation.
	Observer QueryObserver
}

// Gateway executes single and batched multi-queries against the search
// index. Safe for concurrent use.
type Gateway struct {
	tr      transport
	index   string
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
	obs     QueryObserver
	logger  zerolog.Logger
}

// NewGateway creates a Gateway around an index transport.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newGateway(tr transport, cfg GatewayConfig, logger zerolog.Logger) *Gateway {
	settings := gobreaker.Settings{
		Name:    "search-index",
		Timeout: cfg.BreakerTimeout,
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	obs := cfg.Observer
	if obs == nil {
		obs = nopQueryObserver{}
	}

	return &Gateway{
		tr:      tr,
		index:   cfg.Index,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		limiter: limiter,
		obs:     obs,
		logger:  logger.With().Str("component", "search").Logger(),
	}
}

// searchResponse mirrors the hits envelope of a search response.
type searchResponse struct {
	Hits struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

// msearchResponse mirrors the batch-query response envelope.
type msearchResponse struct {
	Responses []searchResponse `json:"responses"`
}

// Search executes a single query and returns hits with their requested
// field projections.
func (g *Gateway) Search(ctx context.Context, req Request) ([]Hit, error) {
	body, err := req.Encode()
	if err != nil {
		return nil, err
	}

	raw, err := g.roundTrip(ctx, "search", body, g.tr.search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return resp.Hits.Hits, nil
}

// MultiSearch executes all queries in one round trip against the index's
// batch-query protocol and returns one identifier set per input query, in
// input order.
func (g *Gateway) MultiSearch(ctx context.Context, reqs []Request) ([]IDSet, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	header, err := json.Marshal(map[string]string{"index": g.index})
	if err != nil {
		return nil, fmt.Errorf("encode msearch header: %w", err)
	}
	for _, req := range reqs {
		body, err := req.Encode()
		if err != nil {
			return nil, err
		}
		buf.Write(header)
		buf.WriteByte('\n')
		buf.Write(body)
		buf.WriteByte('\n')
	}

	raw, err := g.roundTrip(ctx, "msearch", buf.Bytes(), g.tr.msearch)
	if err != nil {
		return nil, fmt.Errorf("msearch: %w", err)
	}

	var resp msearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode msearch response: %w", err)
	}
	if len(resp.Responses) != len(reqs) {
		return nil, fmt.Errorf("msearch returned %d responses for %d queries", len(resp.Responses), len(reqs))
	}

	sets := make([]IDSet, 0, len(resp.Responses))
	for _, r := range resp.Responses {
		set := make(IDSet, len(r.Hits.Hits))
		for _, h := range r.Hits.Hits {
			set.Add(h.ID)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// roundTrip applies the rate limiter and circuit breaker around one call
// and reports its outcome to the observer.
func (g *Gateway) roundTrip(ctx context.Context, op string, body []byte, call func(context.Context, []byte) ([]byte, error)) ([]byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	raw, err := g.breaker.Execute(func() ([]byte, error) {
		return call(ctx, body)
	})
	g.obs.QueryExecuted(op, time.Since(start), err)
	if err != nil {
		g.logger.Warn().Err(err).Str("operation", op).Msg("index call failed")
		return nil, err
	}
	return raw, nil
}
