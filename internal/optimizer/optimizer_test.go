// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package optimizer

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/recommend"
	"github.com/openmarket/taskfeed/internal/recommend/scorers"
	"github.com/openmarket/taskfeed/internal/store/memory"
)

func seedFeedback(t *testing.T, mem *memory.Store, scorer string, userID string, taskID int64, n, clicks, accepts int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		fb := models.RecommendationFeedback{
			RecommendationID: "rec",
			UserID:           userID,
			TaskID:           taskID,
			TopScorer:        scorer,
			Clicked:          i < clicks,
			Accepted:         i < accepts,
			CreatedAt:        time.Now().Add(-time.Hour),
		}
		if err := mem.AppendFeedback(ctx, &fb); err != nil {
			t.Fatal(err)
		}
	}
}

func seedTypedTask(mem *memory.Store, id int64, typ models.TaskType) {
	mem.PutTask(models.Task{
		ID:        id,
		OwnerID:   "owner",
		Type:      typ,
		Location:  "Boston",
		Status:    models.TaskStatusOpen,
		Deadline:  time.Now().Add(30 * 24 * time.Hour),
		CreatedAt: time.Now().Add(-time.Hour),
	})
}

func newTestOptimizer(mem *memory.Store) (*Optimizer, *recommend.ConfigHolder) {
	s := mem.Stores()
	holder := recommend.NewConfigHolder(s.Config, nil, zerolog.Nop())
	o := New(s.Feedback, s.Tasks, holder, Options{}, zerolog.Nop())
	return o, holder
}

func TestRunOnceSkipsThinWindow(t *testing.T) {
	mem := memory.New()
	o, holder := newTestOptimizer(mem)

	seedFeedback(t, mem, scorers.NameContent, "u1", 1, 5, 2, 1)
	o.RunOnce(context.Background())

	if got := holder.Current().Version; got != 0 {
		t.Errorf("Version = %d, want 0 (run skipped)", got)
	}
}

func TestRunOnceNudgesWeights(t *testing.T) {
	mem := memory.New()
	seedTypedTask(mem, 1, models.TaskTypeDelivery)
	seedTypedTask(mem, 2, models.TaskTypeDesign)
	o, holder := newTestOptimizer(mem)

	// Popularity performs far better than its 0.08 share; content far
	// worse than its 0.35 share.
	seedFeedback(t, mem, scorers.NamePopularity, "u1", 1, 20, 18, 10)
	seedFeedback(t, mem, scorers.NameContent, "u2", 2, 20, 1, 0)

	before := holder.Current().Weights
	o.RunOnce(context.Background())
	after := holder.Current().Weights

	if holder.Current().Version != 1 {
		t.Fatalf("Version = %d, want 1", holder.Current().Version)
	}
	if after[scorers.NamePopularity] <= before[scorers.NamePopularity] {
		t.Errorf("popularity weight %v did not rise from %v",
			after[scorers.NamePopularity], before[scorers.NamePopularity])
	}
	if after[scorers.NameContent] >= before[scorers.NameContent] {
		t.Errorf("content weight %v did not fall from %v",
			after[scorers.NameContent], before[scorers.NameContent])
	}

	// The step bound keeps a single run far from the composite target,
	// even though popularity outperformed every other scorer.
	if after[scorers.NamePopularity] > 0.12 {
		t.Errorf("popularity weight %v jumped past the step bound", after[scorers.NamePopularity])
	}
	if after[scorers.NameContent] < 0.30 {
		t.Errorf("content weight %v collapsed past the step bound", after[scorers.NameContent])
	}

	// Total weight mass is preserved.
	var beforeSum, afterSum float64
	for _, w := range before {
		beforeSum += w
	}
	for _, w := range after {
		afterSum += w
	}
	if math.Abs(beforeSum-afterSum) > 1e-9 {
		t.Errorf("weight mass changed: %v -> %v", beforeSum, afterSum)
	}
}

func TestDiversityThresholdTiers(t *testing.T) {
	tests := []struct {
		name  string
		types []models.TaskType
		want  float64
	}{
		{"three distinct types", []models.TaskType{models.TaskTypeDelivery, models.TaskTypeDesign, models.TaskTypeMoving}, 0.6},
		{"two distinct types", []models.TaskType{models.TaskTypeDelivery, models.TaskTypeDesign}, 0.5},
		{"one type", []models.TaskType{models.TaskTypeDelivery}, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.New()
			o, _ := newTestOptimizer(mem)

			var rows []models.RecommendationFeedback
			for i, typ := range tt.types {
				id := int64(i + 1)
				seedTypedTask(mem, id, typ)
				rows = append(rows, models.RecommendationFeedback{
					UserID: "u1", TaskID: id, TopScorer: scorers.NameContent, Clicked: true,
				})
			}

			if got := o.diversityThreshold(context.Background(), rows); got != tt.want {
				t.Errorf("diversityThreshold() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiversityThresholdNoClicksKeepsCurrent(t *testing.T) {
	mem := memory.New()
	o, holder := newTestOptimizer(mem)

	rows := []models.RecommendationFeedback{
		{UserID: "u1", TaskID: 1, TopScorer: scorers.NameContent, Clicked: false},
	}
	if got := o.diversityThreshold(context.Background(), rows); got != holder.Current().DiversityThreshold {
		t.Errorf("diversityThreshold() = %v, want current %v", got, holder.Current().DiversityThreshold)
	}
}

func TestNudgeWeightsNoSignalKeepsWeights(t *testing.T) {
	mem := memory.New()
	o, holder := newTestOptimizer(mem)

	current := holder.Current().Weights
	next := o.nudgeWeights(current, map[string]float64{})
	for name, w := range current {
		if next[name] != w {
			t.Errorf("weight %s changed to %v without signal", name, next[name])
		}
	}
}
