// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/tomtom215/viator/internal/search"
)

// expandHistory turns a user's recent visit history into a
// relevance-filtered candidate set.
//
// The most recently visited attractions seed a similarity lookup whose
// visually-similar and description-similar neighbors form the expansion
// set. The same lookup accumulates frequency counters over the seeds'
// normalized types and classifier labels; the dominant types and labels
// then drive two broader index queries. The result is the intersection of
// the similarity expansion with the type-or-label matches: pure similarity
// expansion is noisy, pure keyword matching is too broad, and only
// candidates passing both filters are both content-similar to recent
// visits and consistent with the user's dominant recent interests.
//
// A user with no history yields the empty set; the caller relies on the
// preference path alone.
func (e *Engine) expandHistory(ctx context.Context, username string, rng *rand.Rand) (search.IDSet, error) {
	entries, err := e.store.History(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load history for %q: %w", username, err)
	}
	if len(entries) == 0 {
		return search.IDSet{}, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].LastVisit != entries[j].LastVisit {
			return entries[i].LastVisit > entries[j].LastVisit
		}
		return entries[i].Count > entries[j].Count
	})
	seedCount := min(e.cfg.HistorySeedLimit, len(entries))
	seedIDs := make([]string, 0, seedCount)
	for _, entry := range entries[:seedCount] {
		seedIDs = append(seedIDs, entry.AttractionID)
	}

	hits, err := e.index.Search(ctx, search.Request{
		Size:  len(seedIDs),
		Query: search.RandomScore{Seed: rng.Int63(), Wrapped: search.IDsFilter{Values: seedIDs}},
		Fields: []string{
			FieldVisuallySimilar,
			FieldDescriptionSimilar,
			FieldTypeNorm,
			FieldLabels,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("similarity lookup: %w", err)
	}

	similar := make(search.IDSet)
	types := newCounter()
	labels := newCounter()
	for _, h := range hits {
		similar.Add(h.Fields[FieldVisuallySimilar]...)
		similar.Add(h.Fields[FieldDescriptionSimilar]...)
		types.Add(h.Fields[FieldTypeNorm]...)
		labels.Add(h.Fields[FieldLabels]...)
	}

	// The filler type appears on most documents; it would drown out every
	// discriminative type in the ranking.
	types.Remove(e.cfg.FillerType)

	matched := make(search.IDSet)
	if err := e.keywordMatch(ctx, rng, FieldTypeNorm, types.Top(e.cfg.KeywordLimit), matched); err != nil {
		return nil, err
	}
	if err := e.keywordMatch(ctx, rng, FieldLabels, labels.Top(e.cfg.KeywordLimit), matched); err != nil {
		return nil, err
	}

	result := make(search.IDSet)
	for id := range similar {
		if matched.Contains(id) {
			result.Add(id)
		}
	}
	return result, nil
}

// keywordMatch unions into the target set the identifiers of documents
// phrase-matching any of the keywords on field. An empty keyword list
// matches nothing.
func (e *Engine) keywordMatch(ctx context.Context, rng *rand.Rand, field string, keywords []string, into search.IDSet) error {
	if len(keywords) == 0 {
		return nil
	}

	clauses := make([]search.Query, 0, len(keywords))
	for _, kw := range keywords {
		clauses = append(clauses, search.MatchPhrase{Field: field, Phrase: kw})
	}

	hits, err := e.index.Search(ctx, search.Request{
		Size:  e.cfg.KeywordPageSize,
		Query: search.RandomScore{Seed: rng.Int63(), Wrapped: search.BoolShould{Clauses: clauses}},
	})
	if err != nil {
		return fmt.Errorf("%s keyword match: %w", field, err)
	}
	for _, h := range hits {
		into.Add(h.ID)
	}
	return nil
}
