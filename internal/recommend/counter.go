// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import "sort"

// counter counts string occurrences while remembering first-seen order, so
// equally frequent keys rank stably by when they were first encountered.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

// Add increments the count for each key.
func (c *counter) Add(keys ...string) {
	for _, k := range keys {
		if _, seen := c.counts[k]; !seen {
			c.order = append(c.order, k)
		}
		c.counts[k]++
	}
}

// Remove drops a key entirely.
func (c *counter) Remove(key string) {
	if _, seen := c.counts[key]; !seen {
		return
	}
	delete(c.counts, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Top returns up to n keys ranked by count descending, ties broken by
// first-seen order.
func (c *counter) Top(n int) []string {
	ranked := make([]string, len(c.order))
	copy(ranked, c.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.counts[ranked[i]] > c.counts[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
