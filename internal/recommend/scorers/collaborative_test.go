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

func userSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestCollaborativeScore(t *testing.T) {
	stats := &EngagementStats{
		TaskEngagers: map[int64]map[string]struct{}{
			10: userSet("a", "b", "c", "d"),
			20: userSet("a", "b", "e"),
			30: userSet("x", "y", "z"),
		},
		UserEngaged: []int64{20, 30},
	}

	scorer := NewCollaborative(3)
	res, err := scorer.Score(Input{Task: models.Task{ID: 10}, Stats: stats})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if res.Cold {
		t.Fatal("Score() cold = true, want false")
	}

	// Best match is task 20: |{a,b}| / |{a,b,c,d,e}| = 0.4.
	if want := 2.0 / 5.0; math.Abs(res.Value-want) > 1e-9 {
		t.Errorf("Score() = %v, want %v", res.Value, want)
	}
}

func TestCollaborativeColdTask(t *testing.T) {
	stats := &EngagementStats{
		TaskEngagers: map[int64]map[string]struct{}{
			10: userSet("a", "b"),
			20: userSet("a", "b", "c"),
		},
		UserEngaged: []int64{20},
	}

	scorer := NewCollaborative(3)
	res, err := scorer.Score(Input{Task: models.Task{ID: 10}, Stats: stats})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !res.Cold || res.Value != 0 {
		t.Errorf("Score() = %+v, want cold zero", res)
	}
}

func TestCollaborativeNoUserHistory(t *testing.T) {
	stats := &EngagementStats{
		TaskEngagers: map[int64]map[string]struct{}{
			10: userSet("a", "b", "c"),
		},
	}

	scorer := NewCollaborative(3)
	res, err := scorer.Score(Input{Task: models.Task{ID: 10}, Stats: stats})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !res.Cold || res.Value != 0 {
		t.Errorf("Score() = %+v, want cold zero", res)
	}
}

func TestCollaborativeNilStats(t *testing.T) {
	scorer := NewCollaborative(3)
	res, err := scorer.Score(Input{Task: models.Task{ID: 10}})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if !res.Cold || res.Value != 0 {
		t.Errorf("Score() = %+v, want cold zero", res)
	}
}

func TestCollaborativeIgnoresSelf(t *testing.T) {
	stats := &EngagementStats{
		TaskEngagers: map[int64]map[string]struct{}{
			10: userSet("a", "b", "c"),
		},
		UserEngaged: []int64{10},
	}

	scorer := NewCollaborative(3)
	res, err := scorer.Score(Input{Task: models.Task{ID: 10}, Stats: stats})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if res.Value != 0 {
		t.Errorf("Score() comparing a task against itself = %v, want 0", res.Value)
	}
}
