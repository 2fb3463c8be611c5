// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package scorers

// Collaborative implements item-based collaborative filtering.
//
// The candidate task's engaging-user set is compared against the
// engaging-user sets of every task the requesting user previously
// engaged with; the best Jaccard similarity wins. Jaccard is already in
// [0, 1] so no rescaling is needed.
//
// When the candidate has fewer than minEngagers distinct engaging users
// the signal is too thin to trust: the scorer returns zero and flags the
// result as cold so the ranker can ignore it when composing reasons.
type Collaborative struct {
	minEngagers int
}

// NewCollaborative creates a collaborative scorer. threshold is the
// minimum co-engaging user count; values below 1 fall back to 3.
func NewCollaborative(threshold int) *Collaborative {
	if threshold < 1 {
		threshold = 3
	}
	return &Collaborative{minEngagers: threshold}
}

// Name returns the scorer identifier.
func (c *Collaborative) Name() string { return NameCollaborative }

// Score computes the best item-to-item similarity for one task.
func (c *Collaborative) Score(in Input) (Result, error) {
	engagers := in.Stats.Engagers(in.Task.ID)
	if len(engagers) < c.minEngagers {
		return Result{Cold: true}, nil
	}
	if in.Stats == nil || len(in.Stats.UserEngaged) == 0 {
		return Result{Cold: true}, nil
	}

	var best float64
	for _, taskID := range in.Stats.UserEngaged {
		if taskID == in.Task.ID {
			continue
		}
		if sim := jaccard(engagers, in.Stats.TaskEngagers[taskID]); sim > best {
			best = sim
		}
	}
	return Result{Value: clamp(best)}, nil
}
