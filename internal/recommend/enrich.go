// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package recommend

import (
	"context"
	"fmt"
)

// enrich resolves candidate identifiers into full records from the primary
// store, fetching in batches no larger than the store's batch-get limit
// and backfilling optional fields on every record.
func (e *Engine) enrich(ctx context.Context, ids []string) ([]AttractionRecord, error) {
	records := make([]AttractionRecord, 0, len(ids))
	for start := 0; start < len(ids); start += e.cfg.BatchGetLimit {
		end := min(start+e.cfg.BatchGetLimit, len(ids))
		batch, err := e.store.BatchGetAttractions(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch get attractions: %w", err)
		}
		records = append(records, batch...)
	}

	for i := range records {
		records[i].FillDefaults()
	}
	return records, nil
}
