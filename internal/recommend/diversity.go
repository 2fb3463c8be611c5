// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"math"
	"strings"

	"github.com/openmarket/taskfeed/internal/models"
)

// diversityWindow is how many recent picks the greedy pass compares
// against.
const diversityWindow = 3

// Diversify reorders a ranked list so consecutive items vary in task
// type or location bucket, returning at most limit items.
//
// The pass is greedy: a candidate is admitted when it differs from the
// rolling window of recent picks on at least one dimension, and runs of
// identical task types are capped at ceil((1-threshold)*limit)+1.
// Skipped candidates are retried later; the last fifth of the slots
// relaxes the window rule so short pools still fill the list.
func Diversify(items []Item, limit int, threshold float64) []Item {
	if limit <= 0 || len(items) == 0 {
		return nil
	}
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}

	maxRun := int(math.Ceil((1-threshold)*float64(limit))) + 1
	relaxFrom := limit - int(math.Ceil(0.2*float64(limit)))

	chosen := make([]Item, 0, limit)
	used := make([]bool, len(items))
	var recentTypes []models.TaskType
	var recentBuckets []string
	runType := models.TaskType("")
	runLen := 0

	admit := func(i int) {
		it := items[i]
		used[i] = true
		chosen = append(chosen, it)
		if it.Task.Type == runType {
			runLen++
		} else {
			runType = it.Task.Type
			runLen = 1
		}
		recentTypes = appendWindow(recentTypes, it.Task.Type)
		recentBuckets = appendWindowStr(recentBuckets, locationBucket(it.Task))
	}

	for len(chosen) < limit {
		idx := -1
		relaxed := len(chosen) >= relaxFrom
		for i := range items {
			if used[i] {
				continue
			}
			if overRunCap(items[i], runType, runLen, maxRun) {
				continue
			}
			if !relaxed && windowSaturated(items[i], recentTypes, recentBuckets) {
				continue
			}
			idx = i
			break
		}
		if idx == -1 {
			// Nothing satisfies both criteria; take the best remaining
			// candidate rather than return a short list.
			for i := range items {
				if !used[i] {
					idx = i
					break
				}
			}
			if idx == -1 {
				break
			}
		}
		admit(idx)
	}
	return chosen
}

// overRunCap reports whether admitting it would extend the current run
// of identical task types past the cap.
func overRunCap(it Item, runType models.TaskType, runLen, maxRun int) bool {
	return it.Task.Type == runType && runLen >= maxRun
}

// windowSaturated reports whether the candidate matches every recent
// pick on both dimensions, meaning it adds no variety at all.
func windowSaturated(it Item, recentTypes []models.TaskType, recentBuckets []string) bool {
	if len(recentTypes) < diversityWindow {
		return false
	}
	for _, t := range recentTypes {
		if t != it.Task.Type {
			return false
		}
	}
	bucket := locationBucket(it.Task)
	for _, b := range recentBuckets {
		if b != bucket {
			return false
		}
	}
	return true
}

// locationBucket coarsens a task location for diversity comparison:
// online tasks share one bucket, everything else buckets by city.
func locationBucket(t models.Task) string {
	if t.Online() {
		return models.LocationOnline
	}
	return strings.ToLower(t.Location)
}

func appendWindow(w []models.TaskType, t models.TaskType) []models.TaskType {
	w = append(w, t)
	if len(w) > diversityWindow {
		w = w[len(w)-diversityWindow:]
	}
	return w
}

func appendWindowStr(w []string, s string) []string {
	w = append(w, s)
	if len(w) > diversityWindow {
		w = w[len(w)-diversityWindow:]
	}
	return w
}
