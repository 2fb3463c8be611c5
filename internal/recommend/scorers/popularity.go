// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package scorers

// Popularity scores a task by distinct engaging users over the last 24
// hours, passed through the saturating map x / (x + k). With the default
// k of 10, ten distinct engagers score 0.5 and the curve approaches 1
// asymptotically, so no single viral task can dominate fusion.
type Popularity struct {
	saturation float64
}

// NewPopularity creates a popularity scorer. saturation is the half-max
// constant k; values at or below zero fall back to 10.
func NewPopularity(saturation float64) *Popularity {
	if saturation <= 0 {
		saturation = 10
	}
	return &Popularity{saturation: saturation}
}

// Name returns the scorer identifier.
func (p *Popularity) Name() string { return NamePopularity }

// Score computes the saturated engagement count for one task.
func (p *Popularity) Score(in Input) (Result, error) {
	x := float64(in.Stats.RecentCount(in.Task.ID))
	return Result{Value: x / (x + p.saturation)}, nil
}
