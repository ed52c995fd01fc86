// Viator - Attraction Discovery and Recommendation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/viator

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/attractions/{id}", "200"))
	RecordHTTPRequest("GET", "/api/v1/attractions/{id}", 200, 12*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/attractions/{id}", "200"))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestRecordIndexQueryErrorCounting(t *testing.T) {
	before := testutil.ToFloat64(IndexQueryErrors.WithLabelValues("msearch"))
	RecordIndexQuery("msearch", time.Millisecond, errors.New("boom"))
	RecordIndexQuery("msearch", time.Millisecond, nil)
	after := testutil.ToFloat64(IndexQueryErrors.WithLabelValues("msearch"))
	if after != before+1 {
		t.Errorf("error counter = %v, want %v (only the failed call counts)", after, before+1)
	}
}

func TestRecordRefreshRun(t *testing.T) {
	beforeOK := testutil.ToFloat64(RefreshUsersTotal.WithLabelValues("refreshed"))
	beforeFailed := testutil.ToFloat64(RefreshUsersTotal.WithLabelValues("failed"))

	RecordRefreshRun(2*time.Second, 7)

	if got := testutil.ToFloat64(RefreshUsersTotal.WithLabelValues("refreshed")); got != beforeOK+7 {
		t.Errorf("refreshed counter = %v, want %v", got, beforeOK+7)
	}
	if got := testutil.ToFloat64(RefreshUsersTotal.WithLabelValues("failed")); got != beforeFailed {
		t.Errorf("failed counter = %v, want %v untouched", got, beforeFailed)
	}
}

// One failed user increments the failed outcome exactly once: the
// engine's observer counts at the point of failure and the run summary
// must not re-add it.
func TestFailedUserCountedOnce(t *testing.T) {
	before := testutil.ToFloat64(RefreshUsersTotal.WithLabelValues("failed"))

	var obs Observer
	obs.RefreshUserFailed()
	RecordRefreshRun(time.Second, 0)

	if got := testutil.ToFloat64(RefreshUsersTotal.WithLabelValues("failed")); got != before+1 {
		t.Errorf("failed counter = %v, want %v", got, before+1)
	}
}

func TestObserverQueryExecuted(t *testing.T) {
	before := testutil.ToFloat64(IndexQueryErrors.WithLabelValues("search"))

	var obs Observer
	obs.QueryExecuted("search", 5*time.Millisecond, errors.New("boom"))
	obs.QueryExecuted("search", 5*time.Millisecond, nil)

	if got := testutil.ToFloat64(IndexQueryErrors.WithLabelValues("search")); got != before+1 {
		t.Errorf("error counter = %v, want %v (only the failed call counts)", got, before+1)
	}
}

func TestObserverCacheOutcomes(t *testing.T) {
	beforeHit := testutil.ToFloat64(RecommendRequestsTotal.WithLabelValues("hit"))
	beforeMiss := testutil.ToFloat64(RecommendRequestsTotal.WithLabelValues("miss"))

	var obs Observer
	obs.RequestServed(true)
	obs.RequestServed(false)
	obs.RequestServed(false)

	if got := testutil.ToFloat64(RecommendRequestsTotal.WithLabelValues("hit")); got != beforeHit+1 {
		t.Errorf("hit counter = %v, want %v", got, beforeHit+1)
	}
	if got := testutil.ToFloat64(RecommendRequestsTotal.WithLabelValues("miss")); got != beforeMiss+2 {
		t.Errorf("miss counter = %v, want %v", got, beforeMiss+2)
	}
}
