// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

// Package textnorm normalizes attraction-type tags and free-text search
// phrases so that index queries match consistently regardless of plural
// forms or upstream spelling quirks.
//
// Normalization tokenizes the input, part-of-speech tags each token, and
// singularizes tokens identified as nouns. A small corpus of domain
// corrections is applied on top: the "nature_reserves" tag family collapses
// to one canonical tag, a known misspelling of "accommodation" is fixed,
// and the ambiguous "biergarten" keyword is expanded so both the German and
// English forms match.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/jinzhu/inflection"
)

// nounTags is the Penn Treebank tag set for nouns.
var nounTags = map[string]struct{}{
	"NN":   {},
	"NNS":  {},
	"NNP":  {},
	"NNPS": {},
}

const (
	natureReserveFamily = "nature_reserves"
	biergarten          = "biergarten"
)

// Normalizer singularizes and cleans free-text tokens. The zero value is
// usable; tagging is deterministic for a given model, so a single instance
// is safe for concurrent use.
type Normalizer struct{}

// New returns a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// NormalizeTag normalizes an underscore-separated attraction-type tag into
// a space-joined phrase, e.g. "art_museums" becomes "art museum".
func (n *Normalizer) NormalizeTag(tag string) string {
	// Every member of the nature-reserves tag family carries the same
	// signal, so collapse before tokenizing.
	if strings.Contains(tag, natureReserveFamily) {
		tag = natureReserveFamily
	}
	tag = strings.ReplaceAll(tag, "accomodation", "accommodation")

	return n.singularizeNouns(strings.ReplaceAll(tag, "_", " "))
}

// NormalizePhrase normalizes a user-entered search phrase: underscores
// become spaces, punctuation is stripped, and plural nouns are singularized.
func (n *Normalizer) NormalizePhrase(phrase string) string {
	phrase = strings.ReplaceAll(phrase, "_", " ")
	phrase = stripPunctuation(phrase)
	return n.singularizeNouns(phrase)
}

// singularizeNouns POS-tags the phrase and singularizes noun tokens.
// Tokens with no singular form pass through unchanged.
func (n *Normalizer) singularizeNouns(phrase string) string {
	phrase = strings.Join(strings.Fields(phrase), " ")
	if phrase == "" {
		return ""
	}

	doc, err := prose.NewDocument(phrase,
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		// Tagging failure leaves the phrase usable as-is.
		return phrase
	}

	out := make([]string, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		if _, isNoun := nounTags[tok.Tag]; !isNoun {
			out = append(out, tok.Text)
			continue
		}

		singular := inflection.Singular(tok.Text)
		if singular == biergarten {
			// Keep both forms so either phrasing matches in the index.
			singular += " beer garden"
		}
		out = append(out, singular)
	}
	return strings.Join(out, " ")
}

// stripPunctuation removes punctuation characters, keeping letters, digits,
// and spaces.
func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
