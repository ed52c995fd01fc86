// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import (
	"context"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/tomtom215/viator/internal/search"
)

// historyIndex serves the similarity lookup from a fixed hit list and the
// secondary keyword queries from per-field id lists, recording every
// request for inspection.
func historyIndex(similarHits []search.Hit, typeIDs, labelIDs []string) *fakeIndex {
	idx := &fakeIndex{}
	idx.searchFn = func(req search.Request) ([]search.Hit, error) {
		rs, ok := req.Query.(search.RandomScore)
		if !ok {
			return nil, nil
		}
		switch wrapped := rs.Wrapped.(type) {
		case search.IDsFilter:
			return similarHits, nil
		case search.BoolShould:
			ids := typeIDs
			if mp, ok := wrapped.Clauses[0].(search.MatchPhrase); ok && mp.Field == FieldLabels {
				ids = labelIDs
			}
			hits := make([]search.Hit, 0, len(ids))
			for _, id := range ids {
				hits = append(hits, search.Hit{ID: id})
			}
			return hits, nil
		}
		return nil, nil
	}
	return idx
}

func seedFilterIDs(t *testing.T, req search.Request) []string {
	t.Helper()
	rs, ok := req.Query.(search.RandomScore)
	if !ok {
		t.Fatalf("query = %T, want search.RandomScore", req.Query)
	}
	filter, ok := rs.Wrapped.(search.IDsFilter)
	if !ok {
		t.Fatalf("wrapped query = %T, want search.IDsFilter", rs.Wrapped)
	}
	return filter.Values
}

func shouldPhrases(t *testing.T, req search.Request) (field string, phrases []string) {
	t.Helper()
	rs, ok := req.Query.(search.RandomScore)
	if !ok {
		t.Fatalf("query = %T, want search.RandomScore", req.Query)
	}
	should, ok := rs.Wrapped.(search.BoolShould)
	if !ok {
		t.Fatalf("wrapped query = %T, want search.BoolShould", rs.Wrapped)
	}
	for _, clause := range should.Clauses {
		mp, ok := clause.(search.MatchPhrase)
		if !ok {
			t.Fatalf("clause = %T, want search.MatchPhrase", clause)
		}
		field = mp.Field
		phrases = append(phrases, mp.Phrase)
	}
	return field, phrases
}

func TestExpandHistoryNoHistory(t *testing.T) {
	index := &fakeIndex{}
	e := newTestEngine(t, newFakeStore(), index, newFakeCache(), nil)

	got, err := e.expandHistory(context.Background(), "alice", rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("expandHistory: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expansion = %v, want empty", got)
	}
	if len(index.searches) != 0 {
		t.Error("empty history still queried the index")
	}
}

func TestExpandHistorySeedsMostRecentVisits(t *testing.T) {
	store := newFakeStore()
	store.history["alice"] = []PageHistoryEntry{
		{AttractionID: "old", LastVisit: 10, Count: 99},
		{AttractionID: "newest", LastVisit: 30, Count: 1},
		{AttractionID: "mid-busy", LastVisit: 20, Count: 5},
		{AttractionID: "mid-quiet", LastVisit: 20, Count: 2},
	}

	index := historyIndex(nil, nil, nil)
	e := newTestEngine(t, store, index, newFakeCache(), nil)

	if _, err := e.expandHistory(context.Background(), "alice", rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("expandHistory: %v", err)
	}

	if len(index.searches) == 0 {
		t.Fatal("no similarity lookup issued")
	}
	got := seedFilterIDs(t, index.searches[0])
	want := []string{"newest", "mid-busy", "mid-quiet", "old"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("seed ids = %v, want %v (recency desc, visit count breaking ties)", got, want)
	}

	wantFields := []string{FieldVisuallySimilar, FieldDescriptionSimilar, FieldTypeNorm, FieldLabels}
	if !reflect.DeepEqual(index.searches[0].Fields, wantFields) {
		t.Errorf("projection fields = %v, want %v", index.searches[0].Fields, wantFields)
	}
}

func TestExpandHistorySeedLimit(t *testing.T) {
	store := newFakeStore()
	for i := int64(0); i < 8; i++ {
		store.history["alice"] = append(store.history["alice"], PageHistoryEntry{
			AttractionID: string(rune('a' + i)),
			LastVisit:    i,
		})
	}

	index := historyIndex(nil, nil, nil)
	e := newTestEngine(t, store, index, newFakeCache(), nil)

	if _, err := e.expandHistory(context.Background(), "alice", rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("expandHistory: %v", err)
	}
	if got := seedFilterIDs(t, index.searches[0]); len(got) != e.cfg.HistorySeedLimit {
		t.Errorf("seed count = %d, want %d", len(got), e.cfg.HistorySeedLimit)
	}
}

func TestExpandHistoryIntersectsSimilarityWithKeywordMatches(t *testing.T) {
	store := newFakeStore()
	store.history["alice"] = []PageHistoryEntry{{AttractionID: "seed", LastVisit: 1}}

	similarHits := []search.Hit{{
		ID: "seed",
		Fields: map[string][]string{
			FieldVisuallySimilar:    {"s1", "s2"},
			FieldDescriptionSimilar: {"s3"},
			FieldTypeNorm:           {"museum"},
			FieldLabels:             {"Building"},
		},
	}}
	// s1 passes the type filter, s3 the label filter; s2 passes neither.
	// x1 matches a keyword but was never in the similarity expansion.
	index := historyIndex(similarHits, []string{"s1", "x1"}, []string{"s3"})
	e := newTestEngine(t, store, index, newFakeCache(), nil)

	got, err := e.expandHistory(context.Background(), "alice", rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("expandHistory: %v", err)
	}

	ids := make([]string, 0, len(got))
	for id := range got {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	want := []string{"s1", "s3"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expansion = %v, want %v", ids, want)
	}
}

func TestExpandHistoryDropsFillerType(t *testing.T) {
	store := newFakeStore()
	store.history["alice"] = []PageHistoryEntry{{AttractionID: "seed", LastVisit: 1}}

	similarHits := []search.Hit{{
		ID: "seed",
		Fields: map[string][]string{
			FieldVisuallySimilar: {"s1"},
			FieldTypeNorm:        {"interesting place", "interesting place", "museum"},
		},
	}}
	index := historyIndex(similarHits, []string{"s1"}, nil)
	e := newTestEngine(t, store, index, newFakeCache(), nil)

	if _, err := e.expandHistory(context.Background(), "alice", rand.New(rand.NewSource(1))); err != nil {
		t.Fatalf("expandHistory: %v", err)
	}

	var typeReqs []search.Request
	for _, req := range index.searches[1:] {
		if field, _ := shouldPhrases(t, req); field == FieldTypeNorm {
			typeReqs = append(typeReqs, req)
		}
	}
	if len(typeReqs) != 1 {
		t.Fatalf("type keyword queries = %d, want 1", len(typeReqs))
	}
	_, phrases := shouldPhrases(t, typeReqs[0])
	if !reflect.DeepEqual(phrases, []string{"museum"}) {
		t.Errorf("type keywords = %v, want [museum] with the filler type dropped", phrases)
	}
}

func TestExpandHistorySkipsEmptyKeywordQueries(t *testing.T) {
	store := newFakeStore()
	store.history["alice"] = []PageHistoryEntry{{AttractionID: "seed", LastVisit: 1}}

	// Seeds carry similar ids but no types or labels at all; issuing a
	// keyword query with zero clauses would match the entire index.
	similarHits := []search.Hit{{
		ID:     "seed",
		Fields: map[string][]string{FieldVisuallySimilar: {"s1"}},
	}}
	index := historyIndex(similarHits, nil, nil)
	e := newTestEngine(t, store, index, newFakeCache(), nil)

	got, err := e.expandHistory(context.Background(), "alice", rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("expandHistory: %v", err)
	}
	if len(index.searches) != 1 {
		t.Errorf("issued %d searches, want only the similarity lookup", len(index.searches))
	}
	if len(got) != 0 {
		t.Errorf("expansion = %v, want empty with no keyword evidence", got)
	}
}
