// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package scorers

import (
	"math"
	"testing"

	"github.com/openmarket/taskfeed/internal/models"
)

func TestPopularityScore(t *testing.T) {
	scorer := NewPopularity(10)

	tests := []struct {
		name  string
		count int
		want  float64
	}{
		{"no engagement", 0, 0},
		{"half saturation", 10, 0.5},
		{"heavy engagement", 90, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &EngagementStats{Recent24h: map[int64]int{1: tt.count}}
			res, err := scorer.Score(Input{Task: models.Task{ID: 1}, Stats: stats})
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if math.Abs(res.Value-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", res.Value, tt.want)
			}
			if res.Value < 0 || res.Value >= 1 && tt.count > 0 {
				t.Errorf("Score() = %v, want within [0, 1)", res.Value)
			}
		})
	}
}

func TestPopularityNilStats(t *testing.T) {
	scorer := NewPopularity(0)
	res, err := scorer.Score(Input{Task: models.Task{ID: 1}})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if res.Value != 0 {
		t.Errorf("Score() = %v, want 0", res.Value)
	}
}
