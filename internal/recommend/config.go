// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import "fmt"

// Config holds the pipeline's tunables. Defaults match the limits of the
// backing services (store batch-get limit, index page sizes).
type Config struct {
	// ReturnCount is the public result limit after final shuffling.
	ReturnCount int `koanf:"return_count"`

	// PreferencePageSize caps hits per preference query.
	PreferencePageSize int `koanf:"preference_page_size"`

	// PreferenceSampleLimit caps how many preference-derived candidates
	// survive merging.
	PreferenceSampleLimit int `koanf:"preference_sample_limit"`

	// HistorySampleLimit caps how many history-derived candidates survive
	// merging. Smaller than the preference limit so explicit preferences
	// outweigh inferred history.
	HistorySampleLimit int `koanf:"history_sample_limit"`

	// HistorySeedLimit is how many recent visits seed similarity
	// expansion.
	HistorySeedLimit int `koanf:"history_seed_limit"`

	// KeywordLimit is how many top types/labels feed the secondary
	// history queries.
	KeywordLimit int `koanf:"keyword_limit"`

	// KeywordPageSize caps hits per secondary history query.
	KeywordPageSize int `koanf:"keyword_page_size"`

	// BatchGetLimit is the primary store's hard batch-fetch constraint.
	BatchGetLimit int `koanf:"batch_get_limit"`

	// FillerType is a generic type value stripped from frequency ranking;
	// it appears on most documents and carries no discriminative signal.
	FillerType string `koanf:"filler_type"`

	// RefreshConcurrency bounds the batch-refresh worker pool.
	RefreshConcurrency int `koanf:"refresh_concurrency"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		ReturnCount:           36,
		PreferencePageSize:    100,
		PreferenceSampleLimit: 100,
		HistorySampleLimit:    30,
		HistorySeedLimit:      5,
		KeywordLimit:          15,
		KeywordPageSize:       200,
		BatchGetLimit:         100,
		FillerType:            "interesting place",
		RefreshConcurrency:    8,
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	positives := map[string]int{
		"return_count":            c.ReturnCount,
		"preference_page_size":    c.PreferencePageSize,
		"preference_sample_limit": c.PreferenceSampleLimit,
		"history_sample_limit":    c.HistorySampleLimit,
		"history_seed_limit":      c.HistorySeedLimit,
		"keyword_limit":           c.KeywordLimit,
		"keyword_page_size":       c.KeywordPageSize,
		"batch_get_limit":         c.BatchGetLimit,
		"refresh_concurrency":     c.RefreshConcurrency,
	}
	for name, v := range positives {
		if v <= 0 {
			return fmt.Errorf("recommend config: %s must be positive, got %d", name, v)
		}
	}
	if c.PreferenceSampleLimit > c.BatchGetLimit {
		return fmt.Errorf("recommend config: preference_sample_limit %d exceeds batch_get_limit %d",
			c.PreferenceSampleLimit, c.BatchGetLimit)
	}
	return nil
}
