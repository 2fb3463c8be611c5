// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"testing"

	"github.com/openmarket/taskfeed/internal/models"
)

func item(id int64, typ models.TaskType, location string, score float64) Item {
	return Item{
		Task:  models.Task{ID: id, Type: typ, Location: location},
		Score: score,
	}
}

func longestTypeRun(items []Item) int {
	longest, run := 0, 0
	var last models.TaskType
	for i := range items {
		if i > 0 && items[i].Task.Type == last {
			run++
		} else {
			run = 1
		}
		last = items[i].Task.Type
		if run > longest {
			longest = run
		}
	}
	return longest
}

func TestDiversifyLimitsRuns(t *testing.T) {
	// 80% of the top-scored pool shares one type; threshold 0.6 caps the
	// identical-type run at ceil(0.4*10)+1 = 5.
	var items []Item
	for i := int64(1); i <= 13; i++ {
		items = append(items, item(i, models.TaskTypeDelivery, "Boston", 1.0-float64(i)*0.01))
	}
	items = append(items,
		item(20, models.TaskTypeDesign, "online", 0.5),
		item(21, models.TaskTypeTutoring, "Denver", 0.4),
		item(22, models.TaskTypeWriting, "online", 0.3),
	)

	out := Diversify(items, 10, 0.6)
	if len(out) != 10 {
		t.Fatalf("Diversify() returned %d items, want 10", len(out))
	}

	headRun := 0
	for _, it := range out {
		if it.Task.Type != models.TaskTypeDelivery {
			break
		}
		headRun++
	}
	if headRun > 5 {
		t.Errorf("head run of dominant type = %d, want at most 5", headRun)
	}
}

func TestDiversifyRespectsLimit(t *testing.T) {
	var items []Item
	for i := int64(1); i <= 30; i++ {
		items = append(items, item(i, models.TaskTypeErrand, "Boston", 0.9))
	}
	out := Diversify(items, 7, 0.5)
	if len(out) != 7 {
		t.Errorf("Diversify() returned %d items, want 7", len(out))
	}

	seen := make(map[int64]struct{})
	for _, it := range out {
		if _, dup := seen[it.Task.ID]; dup {
			t.Errorf("duplicate task %d in output", it.Task.ID)
		}
		seen[it.Task.ID] = struct{}{}
	}
}

func TestDiversifyShortPool(t *testing.T) {
	items := []Item{
		item(1, models.TaskTypeDelivery, "Boston", 0.9),
		item(2, models.TaskTypeDelivery, "Boston", 0.8),
	}
	out := Diversify(items, 10, 0.5)
	if len(out) != 2 {
		t.Errorf("Diversify() returned %d items, want 2", len(out))
	}
}

func TestDiversifyPrefersVariety(t *testing.T) {
	// Four same-type same-city items followed by one different type. The
	// window admits three alike, then the variety item jumps the queue.
	items := []Item{
		item(1, models.TaskTypeDelivery, "Boston", 0.9),
		item(2, models.TaskTypeDelivery, "Boston", 0.8),
		item(3, models.TaskTypeDelivery, "Boston", 0.7),
		item(4, models.TaskTypeDelivery, "Boston", 0.6),
		item(5, models.TaskTypeDesign, "Boston", 0.5),
	}
	out := Diversify(items, 5, 0.5)
	if len(out) != 5 {
		t.Fatalf("Diversify() returned %d items, want 5", len(out))
	}
	if out[3].Task.ID != 5 {
		t.Errorf("slot 4 task = %d, want variety item 5", out[3].Task.ID)
	}
}

func TestDiversifyZeroLimit(t *testing.T) {
	if out := Diversify([]Item{item(1, models.TaskTypeDelivery, "", 1)}, 0, 0.5); out != nil {
		t.Errorf("Diversify() with zero limit = %v, want nil", out)
	}
}
