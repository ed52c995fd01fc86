// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import (
	"context"
	"errors"

	"github.com/tomtom215/viator/internal/search"
)

// Index field names shared by the recommendation pipeline and the keyword
// search endpoint.
const (
	FieldAddress            = "address"
	FieldDescription        = "description"
	FieldDescriptionNorm    = "descriptionP"
	FieldName               = "attractionName"
	FieldTypeNorm           = "attractionTypeP"
	FieldVisuallySimilar    = "visSimilar"
	FieldDescriptionSimilar = "descSimilar"
	FieldLabels             = "rekognitionLabels"
)

// ErrNotFound reports an absent user, profile, or attraction. The
// recommendation path treats it as an empty result; direct single-entity
// lookups surface it to the caller.
var ErrNotFound = errors.New("not found")

// UserProfile holds a user's explicit preference signals.
type UserProfile struct {
	// Username is the unique profile key.
	Username string `json:"username" dynamodbav:"username"`

	// FavoriteCountries is the set of countries the user marked as
	// favorites. Order carries no meaning.
	FavoriteCountries []string `json:"favCty" dynamodbav:"favCty"`

	// AttractionTypes is the set of preferred attraction-type tags, raw
	// (not yet normalized).
	AttractionTypes []string `json:"attractions" dynamodbav:"attractions"`
}

// OpeningHours is the opening-hours structure carried on attraction
// records. WeekdayText may be absent upstream and is backfilled to an
// empty sequence before records leave the pipeline.
type OpeningHours struct {
	OpenNow     bool     `json:"open_now,omitempty" dynamodbav:"open_now,omitempty"`
	WeekdayText []string `json:"weekday_text" dynamodbav:"weekday_text,omitempty"`
}

// Restaurant is a nearby restaurant attached to an attraction by the
// lookup service. This core only reads and defaults the list.
type Restaurant struct {
	ID          string  `json:"id" dynamodbav:"id"`
	Name        string  `json:"name" dynamodbav:"name"`
	Phone       string  `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Price       string  `json:"price,omitempty" dynamodbav:"price,omitempty"`
	Rating      float64 `json:"rating,omitempty" dynamodbav:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty" dynamodbav:"review_count,omitempty"`
}

// AttractionRecord is a full attraction document from the primary store.
type AttractionRecord struct {
	ID                 string       `json:"attractionId" dynamodbav:"attractionId"`
	Name               string       `json:"attractionName" dynamodbav:"attractionName"`
	Address            string       `json:"address" dynamodbav:"address"`
	Description        string       `json:"description" dynamodbav:"description"`
	AttractionType     string       `json:"attractionType" dynamodbav:"attractionType"`
	Labels             []string     `json:"rekognitionLabels,omitempty" dynamodbav:"rekognitionLabels,omitempty"`
	VisuallySimilar    []string     `json:"visSimilar,omitempty" dynamodbav:"visSimilar,omitempty"`
	DescriptionSimilar []string     `json:"descSimilar,omitempty" dynamodbav:"descSimilar,omitempty"`
	OpeningHours       OpeningHours `json:"opening_hours" dynamodbav:"opening_hours"`
	Restaurants        []Restaurant `json:"restaurants" dynamodbav:"restaurants,omitempty"`
	Photos             []string     `json:"photos,omitempty" dynamodbav:"photos,omitempty"`
	Rating             float64      `json:"rating,omitempty" dynamodbav:"rating,omitempty"`
	ReviewsCount       int          `json:"reviews_cnt,omitempty" dynamodbav:"reviews_cnt,omitempty"`
	ViewCount          int64        `json:"cnt" dynamodbav:"cnt"`
}

// FillDefaults backfills optional fields so downstream consumers never see
// missing sequences. Idempotent.
func (r *AttractionRecord) FillDefaults() {
	if r.Restaurants == nil {
		r.Restaurants = []Restaurant{}
	}
	if r.OpeningHours.WeekdayText == nil {
		r.OpeningHours.WeekdayText = []string{}
	}
}

// AttractionSummary is the projection returned by keyword search.
type AttractionSummary struct {
	ID           string   `json:"attractionId" dynamodbav:"attractionId"`
	Name         string   `json:"attractionName" dynamodbav:"attractionName"`
	Description  string   `json:"description" dynamodbav:"description"`
	Photos       []string `json:"photos,omitempty" dynamodbav:"photos,omitempty"`
	Rating       float64  `json:"rating,omitempty" dynamodbav:"rating,omitempty"`
	ReviewsCount int      `json:"reviews_cnt,omitempty" dynamodbav:"reviews_cnt,omitempty"`
}

// PageHistoryEntry is one (username, attraction) visit counter.
type PageHistoryEntry struct {
	Username     string `json:"username" dynamodbav:"username"`
	AttractionID string `json:"attractionId" dynamodbav:"attractionId"`
	Count        int64  `json:"cnt" dynamodbav:"cnt"`
	LastVisit    int64  `json:"lastVisit" dynamodbav:"lastVisit"`
}

// RefreshReport summarizes a batch-refresh run. One user's failure never
// aborts the batch; failed users are listed and left unrefreshed.
type RefreshReport struct {
	Total     int      `json:"total"`
	Refreshed int      `json:"refreshed"`
	Failed    []string `json:"failed,omitempty"`
}

// Store is the primary-store contract the pipeline consumes. Implemented
// by the DynamoDB adapter; tests use in-memory fakes.
type Store interface {
	// Profile returns the profile for username, or ErrNotFound.
	Profile(ctx context.Context, username string) (*UserProfile, error)

	// Profiles returns every profile via a full scan.
	Profiles(ctx context.Context) ([]UserProfile, error)

	// History returns all page-history entries for username.
	History(ctx context.Context, username string) ([]PageHistoryEntry, error)

	// BatchGetAttractions resolves up to the store's batch limit of
	// identifiers into full records. Unknown identifiers are skipped.
	BatchGetAttractions(ctx context.Context, ids []string) ([]AttractionRecord, error)
}

// Index is the search-index contract the pipeline consumes.
type Index interface {
	// Search executes one query returning hits with field projections.
	Search(ctx context.Context, req search.Request) ([]search.Hit, error)

	// MultiSearch executes all queries in one round trip, returning one
	// identifier set per query in input order.
	MultiSearch(ctx context.Context, reqs []search.Request) ([]search.IDSet, error)
}

// Cache is the recommendation-cache contract. A found=false result means
// the key is absent or expired; an empty payload is a valid hit.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	SetBatch(ctx context.Context, keys []string, values [][]byte) error
}

// TagNormalizer normalizes raw attraction-type tags for index matching.
type TagNormalizer interface {
	NormalizeTag(tag string) string
}

// Observer receives pipeline events for metrics. All methods must be safe
// for concurrent use.
type Observer interface {
	RequestServed(cacheHit bool)
	RefreshUserFailed()
}

// nopObserver is the default when no Observer is injected.
type nopObserver struct{}

func (nopObserver) RequestServed(bool)  {}
func (nopObserver) RefreshUserFailed() {}
