// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package search

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Query is a node in an index query tree. The concrete variants below are
// the only query shapes the service issues; building queries as a typed
// tree keeps construction logic testable without a live index.
type Query interface {
	// body returns the wire representation of the query node.
	body() map[string]any
}

// MatchPhrase matches a field against an exact phrase.
type MatchPhrase struct {
	Field  string
	Phrase string
}

func (q MatchPhrase) body() map[string]any {
	return map[string]any{"match_phrase": map[string]any{q.Field: q.Phrase}}
}

// Match matches a field against analyzed text.
type Match struct {
	Field string
	Text  string
}

func (q Match) body() map[string]any {
	return map[string]any{"match": map[string]any{q.Field: q.Text}}
}

// BoolShould matches documents satisfying at least one clause.
type BoolShould struct {
	Clauses []Query
}

func (q BoolShould) body() map[string]any {
	return map[string]any{"bool": map[string]any{"should": clauseBodies(q.Clauses)}}
}

// BoolMust matches documents satisfying every clause.
type BoolMust struct {
	Clauses []Query
}

func (q BoolMust) body() map[string]any {
	return map[string]any{"bool": map[string]any{"must": clauseBodies(q.Clauses)}}
}

// IDsFilter matches documents by identifier.
type IDsFilter struct {
	Values []string
}

func (q IDsFilter) body() map[string]any {
	return map[string]any{"ids": map[string]any{"values": q.Values}}
}

// RandomScore wraps a query in a seeded random scoring function. Result
// membership is still relevance-filtered by the wrapped query, but ordering
// within the capped page varies per seed; callers must treat results as a
// set. A nil Wrapped query scores the whole index.
type RandomScore struct {
	Seed    int64
	Wrapped Query
}

func (q RandomScore) body() map[string]any {
	fn := map[string]any{
		"random_score": map[string]any{"seed": q.Seed},
	}
	if q.Wrapped != nil {
		fn["query"] = q.Wrapped.body()
	}
	return map[string]any{"function_score": fn}
}

func clauseBodies(clauses []Query) []map[string]any {
	out := make([]map[string]any, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, c.body())
	}
	return out
}

// Request is a single index search request.
type Request struct {
	// Size caps the number of hits returned. Zero leaves the index default.
	Size int

	// Query is the query tree. A nil query matches everything.
	Query Query

	// Fields lists field projections to return with each hit. When empty,
	// only identifiers are requested.
	Fields []string

	// WithSource requests full documents. Off by default: the pipeline
	// works on identifiers and field projections only.
	WithSource bool
}

// Body returns the wire-format request body.
func (r Request) Body() map[string]any {
	m := map[string]any{"_source": r.WithSource}
	if r.Size > 0 {
		m["size"] = r.Size
	}
	if r.Query != nil {
		m["query"] = r.Query.body()
	}
	if len(r.Fields) > 0 {
		m["fields"] = r.Fields
	} else {
		m["fields"] = []string{"_id"}
	}
	return m
}

// Encode serializes the request body to JSON.
func (r Request) Encode() ([]byte, error) {
	b, err := json.Marshal(r.Body())
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}
	return b, nil
}
