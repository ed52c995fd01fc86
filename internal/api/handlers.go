// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package api

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/viator/internal/recommend"
	"github.com/tomtom215/viator/internal/search"
)

// searchPageSize caps keyword search results.
const searchPageSize = 60

// defaultRecommendTimeout bounds the interactive recommendation pipeline
// when no timeout is configured.
const defaultRecommendTimeout = 10 * time.Second

// validate is a reusable validator instance.
var validate = validator.New()

// Recommender is the recommendation engine surface the handlers use.
type Recommender interface {
	Recommend(ctx context.Context, username string) ([]recommend.AttractionRecord, error)
	RefreshAll(ctx context.Context) (*recommend.RefreshReport, error)
}

// Store is the primary-store surface the handlers use.
type Store interface {
	Attraction(ctx context.Context, id string) (*recommend.AttractionRecord, error)
	PutAttraction(ctx context.Context, rec recommend.AttractionRecord) error
	UpsertHistory(ctx context.Context, username, attractionID string, visitedAt int64) error
	Profile(ctx context.Context, username string) (*recommend.UserProfile, error)
	PutProfile(ctx context.Context, profile recommend.UserProfile) error
	BatchGetSummaries(ctx context.Context, ids []string) ([]recommend.AttractionSummary, error)
}

// Index is the search-index surface the keyword endpoint uses.
type Index interface {
	Search(ctx context.Context, req search.Request) ([]search.Hit, error)
}

// CacheEvictor invalidates users' cached recommendations.
type CacheEvictor interface {
	Del(ctx context.Context, keys ...string) error
}

// Normalizer normalizes a user-entered keyword for the processed index
// fields.
type Normalizer interface {
	NormalizePhrase(phrase string) string
}

// HandlerConfig tunes the handlers.
type HandlerConfig struct {
	// RecommendTimeout is the overall deadline for one interactive
	// recommendation request, covering cache, store, and index calls.
	// Zero uses the default.
	RecommendTimeout time.Duration
}

// Handler implements the HTTP endpoints.
type Handler struct {
	engine           Recommender
	store            Store
	index            Index
	cache            CacheEvictor
	norm             Normalizer
	logger           zerolog.Logger
	recommendTimeout time.Duration

	// now and newRand are seams for deterministic tests.
	now     func() time.Time
	newRand func() *rand.Rand
}

// NewHandler creates a Handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine Recommender, store Store, index Index, cache CacheEvictor, norm Normalizer, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	if cfg.RecommendTimeout <= 0 {
		cfg.RecommendTimeout = defaultRecommendTimeout
	}
	return &Handler{
		engine:           engine,
		store:            store,
		index:            index,
		cache:            cache,
		norm:             norm,
		logger:           logger.With().Str("component", "api").Logger(),
		recommendTimeout: cfg.RecommendTimeout,
		now:              time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // ordering jitter only
		},
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondData(w, map[string]string{"status": "ok"}, 0)
}

// Recommendations serves GET /api/v1/users/{username}/recommendations.
// The pipeline runs under an overall deadline so an unresponsive cache or
// index fails the request instead of hanging it.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	ctx, cancel := context.WithTimeout(r.Context(), h.recommendTimeout)
	defer cancel()

	records, err := h.engine.Recommend(ctx, username)
	if err != nil {
		h.logger.Error().Err(err).Str("user", username).Msg("recommendation request failed")
		respondError(w, http.StatusInternalServerError, "recommend_failed", "could not compute recommendations")
		return
	}
	respondData(w, records, len(records))
}

// Refresh serves POST /api/v1/refresh: a synchronous full cache refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RefreshAll(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("batch refresh request failed")
		respondError(w, http.StatusInternalServerError, "refresh_failed", "batch refresh did not complete")
		return
	}
	respondData(w, report, report.Total)
}

// Attraction serves GET /api/v1/attractions/{id}. Every successful view
// bumps the record's view counter; a ?user= parameter additionally
// records the visit in that user's page history.
func (h *Handler) Attraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.Attraction(r.Context(), id)
	if errors.Is(err, recommend.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "attraction not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("attraction", id).Msg("attraction lookup failed")
		respondError(w, http.StatusInternalServerError, "lookup_failed", "could not load attraction")
		return
	}

	rec.ViewCount++
	rec.FillDefaults()
	if err := h.store.PutAttraction(r.Context(), *rec); err != nil {
		// The view still succeeds; only the counter update is lost.
		h.logger.Warn().Err(err).Str("attraction", id).Msg("view count update failed")
	}

	if username := r.URL.Query().Get("user"); username != "" {
		if err := h.store.UpsertHistory(r.Context(), username, id, h.now().Unix()); err != nil {
			h.logger.Warn().Err(err).
				Str("user", username).
				Str("attraction", id).
				Msg("page history update failed")
		}
	}

	respondData(w, rec, 1)
}

// Search serves GET /api/v1/search/{keyword}: a free-text lookup across
// type, name, address, description, and classifier labels, with
// randomized ordering inside the result page.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := chi.URLParam(r, "keyword")
	normalized := h.norm.NormalizePhrase(keyword)

	req := search.Request{
		Size: searchPageSize,
		Query: search.RandomScore{
			Seed: h.newRand().Int63(),
			Wrapped: search.BoolShould{Clauses: []search.Query{
				search.MatchPhrase{Field: recommend.FieldTypeNorm, Phrase: normalized},
				search.MatchPhrase{Field: recommend.FieldName, Phrase: keyword},
				search.MatchPhrase{Field: recommend.FieldAddress, Phrase: keyword},
				search.MatchPhrase{Field: recommend.FieldDescriptionNorm, Phrase: normalized},
				search.MatchPhrase{Field: recommend.FieldLabels, Phrase: normalized},
			}},
		},
	}

	hits, err := h.index.Search(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Str("keyword", keyword).Msg("keyword search failed")
		respondError(w, http.StatusInternalServerError, "search_failed", "could not search attractions")
		return
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	summaries, err := h.store.BatchGetSummaries(r.Context(), ids)
	if err != nil {
		h.logger.Error().Err(err).Str("keyword", keyword).Msg("summary lookup failed")
		respondError(w, http.StatusInternalServerError, "search_failed", "could not load search results")
		return
	}
	respondData(w, summaries, len(summaries))
}

// Profile serves GET /api/v1/profiles/{username}.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.store.Profile(r.Context(), username)
	if errors.Is(err, recommend.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "profile not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user", username).Msg("profile lookup failed")
		respondError(w, http.StatusInternalServerError, "lookup_failed", "could not load profile")
		return
	}
	respondData(w, profile, 1)
}

// profilePayload is the profile create/update request body.
type profilePayload struct {
	Username          string   `json:"username" validate:"required,max=128"`
	FavoriteCountries []string `json:"favCty" validate:"max=50,dive,max=128"`
	AttractionTypes   []string `json:"attractions" validate:"max=50,dive,max=128"`
}

// PutProfile serves POST /api/v1/profiles and PUT
// /api/v1/profiles/{username}. A successful write evicts the user's
// cached recommendations so the next request reflects the new
// preferences.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	var payload profilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if username := chi.URLParam(r, "username"); username != "" {
		payload.Username = username
	}
	if err := validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	profile := recommend.UserProfile{
		Username:          payload.Username,
		FavoriteCountries: payload.FavoriteCountries,
		AttractionTypes:   payload.AttractionTypes,
	}
	if err := h.store.PutProfile(r.Context(), profile); err != nil {
		h.logger.Error().Err(err).Str("user", profile.Username).Msg("profile write failed")
		respondError(w, http.StatusInternalServerError, "write_failed", "could not store profile")
		return
	}

	// Stale cache entries would serve recommendations for the old
	// preferences until TTL expiry.
	if err := h.cache.Del(r.Context(), profile.Username); err != nil {
		h.logger.Warn().Err(err).Str("user", profile.Username).Msg("cache eviction failed")
	}

	respondData(w, profile, 1)
}
