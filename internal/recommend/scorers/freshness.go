// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package scorers

import "time"

// Freshness tuning. Tasks score 1.0 for their first day, then decay
// linearly to 0 at maxAge. Tasks from posters whose account is at most
// newPosterAge old get a flat boost, capped at 1.0.
const (
	freshFullAge   = 24 * time.Hour
	freshMaxAge    = 14 * 24 * time.Hour
	newPosterAge   = 7 * 24 * time.Hour
	newPosterBoost = 0.15
)

// Freshness scores a task by its age with a new-poster boost.
type Freshness struct{}

// NewFreshness creates a freshness scorer.
func NewFreshness() *Freshness { return &Freshness{} }

// Name returns the scorer identifier.
func (f *Freshness) Name() string { return NameFreshness }

// Score computes the age-based score for one task.
func (f *Freshness) Score(in Input) (Result, error) {
	age := in.Now.Sub(in.Task.CreatedAt)

	var base float64
	switch {
	case age <= freshFullAge:
		base = 1.0
	case age >= freshMaxAge:
		base = 0
	default:
		base = 1.0 - float64(age-freshFullAge)/float64(freshMaxAge-freshFullAge)
	}

	res := Result{Value: base}
	if posterAge := in.Stats.PosterAge(in.Task.OwnerID, in.Now); posterAge >= 0 && posterAge <= newPosterAge {
		res.Value = clamp(base + newPosterBoost)
		res.NewPoster = true
	}
	return res, nil
}
