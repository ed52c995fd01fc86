// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import "github.com/tomtom215/viator/internal/search"

// BuildPreferenceQuery turns a user preference profile into an index query:
// a seeded random-score wrapper over a disjunction of location clauses
// (favorite countries against address and description) and a disjunction of
// type clauses (normalized preferred types against type, name, and
// description fields).
//
// When both disjunctions are non-empty a candidate must satisfy at least
// one clause from each. When only one is non-empty it stands alone. When
// the profile carries no signal at all, the query has no filtering
// constraints and yields a score-randomized sample of the whole index,
// capped by pageSize.
func BuildPreferenceQuery(profile UserProfile, norm TagNormalizer, seed int64, pageSize int) search.Request {
	location := make([]search.Query, 0, 2*len(profile.FavoriteCountries))
	for _, country := range profile.FavoriteCountries {
		location = append(location, search.MatchPhrase{Field: FieldAddress, Phrase: country})
	}
	for _, country := range profile.FavoriteCountries {
		location = append(location, search.MatchPhrase{Field: FieldDescription, Phrase: country})
	}

	normalized := make([]string, 0, len(profile.AttractionTypes))
	for _, tag := range profile.AttractionTypes {
		normalized = append(normalized, norm.NormalizeTag(tag))
	}
	types := make([]search.Query, 0, 3*len(normalized))
	for _, t := range normalized {
		types = append(types, search.Match{Field: FieldTypeNorm, Text: t})
	}
	for _, t := range normalized {
		types = append(types, search.MatchPhrase{Field: FieldName, Phrase: t})
	}
	for _, t := range normalized {
		types = append(types, search.MatchPhrase{Field: FieldDescriptionNorm, Phrase: t})
	}

	var inner search.Query
	switch {
	case len(location) > 0 && len(types) > 0:
		inner = search.BoolMust{Clauses: []search.Query{
			search.BoolShould{Clauses: location},
			search.BoolShould{Clauses: types},
		}}
	case len(location) > 0:
		inner = search.BoolShould{Clauses: location}
	case len(types) > 0:
		inner = search.BoolShould{Clauses: types}
	}

	return search.Request{
		Size:  pageSize,
		Query: search.RandomScore{Seed: seed, Wrapped: inner},
	}
}
