// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStage(t *testing.T) {
	before := testutil.CollectAndCount(StageDuration)
	ObserveStage("stage1_artists", time.Now().Add(-10*time.Millisecond))
	after := testutil.CollectAndCount(StageDuration)
	if after <= before {
		t.Errorf("StageDuration series count = %d, want > %d", after, before)
	}
}

func TestSetBreakerState(t *testing.T) {
	tests := []struct {
		state string
		want  float64
	}{
		{"closed", 0},
		{"half-open", 1},
		{"open", 2},
		{"unknown", 0},
	}
	for _, tt := range tests {
		SetBreakerState(tt.state)
		if got := testutil.ToFloat64(CatalogBreakerState); got != tt.want {
			t.Errorf("SetBreakerState(%q) gauge = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	before := testutil.CollectAndCount(HTTPRequestDuration)
	ObserveHTTPRequest("POST", "/api/v1/dgs/stage1-artists", 200, 25*time.Millisecond)
	after := testutil.CollectAndCount(HTTPRequestDuration)
	if after <= before {
		t.Errorf("HTTPRequestDuration series count = %d, want > %d", after, before)
	}
}
