// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import (
	"math/rand"
	"sort"

	"github.com/tomtom215/viator/internal/search"
)

// sampleIDs draws a uniform random sample without replacement of at most
// limit identifiers from set.
func sampleIDs(rng *rand.Rand, set search.IDSet, limit int) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	// Map iteration order is already random but not reproducible; sort
	// before shuffling so a seeded rng draws the same sample.
	sort.Strings(ids)
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// mergeCandidates combines preference- and history-derived candidate sets
// under the priority-weighted sampling policy: at most prefLimit
// identifiers drawn from the preference set and histLimit from the history
// set, deduplicated. If the union still exceeds the store's batch-fetch
// limit, it is shuffled and truncated; past the per-set caps, truncation
// order is random rather than preference-priority.
func mergeCandidates(rng *rand.Rand, pref, hist search.IDSet, prefLimit, histLimit, batchLimit int) []string {
	p := sampleIDs(rng, pref, prefLimit)
	h := sampleIDs(rng, hist, histLimit)

	seen := make(search.IDSet, len(p)+len(h))
	merged := make([]string, 0, len(p)+len(h))
	for _, id := range p {
		if !seen.Contains(id) {
			seen.Add(id)
			merged = append(merged, id)
		}
	}
	for _, id := range h {
		if !seen.Contains(id) {
			seen.Add(id)
			merged = append(merged, id)
		}
	}

	if len(merged) > batchLimit {
		rng.Shuffle(len(merged), func(i, j int) { merged[i], merged[j] = merged[j], merged[i] })
		merged = merged[:batchLimit]
	}
	return merged
}
