// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package scorers

import "strings"

// Location proximity tiers.
const (
	locationExact  = 1.0
	locationOnline = 0.6
	locationOther  = 0.2
)

// Location scores a task by proximity to the user's residence city:
// exact city match 1.0, online tasks 0.6, everything else 0.2. City
// comparison is case-insensitive. Users without a residence city only
// reach the online tier.
type Location struct{}

// NewLocation creates a location scorer.
func NewLocation() *Location { return &Location{} }

// Name returns the scorer identifier.
func (l *Location) Name() string { return NameLocation }

// Score computes the proximity tier for one task.
func (l *Location) Score(in Input) (Result, error) {
	if in.Task.Online() {
		return Result{Value: locationOnline}, nil
	}
	if in.User != nil && in.User.ResidenceCity != "" &&
		strings.EqualFold(in.User.ResidenceCity, in.Task.Location) {
		return Result{Value: locationExact}, nil
	}
	return Result{Value: locationOther}, nil
}
