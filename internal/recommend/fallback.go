// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// Fallback bucket reasons.
const (
	ReasonPopular     = "popular"
	ReasonNewlyPosted = "newly posted"
	ReasonHighReward  = "high reward"
	ReasonClosingSoon = "closing soon"
)

// urgentDeadline is the closing-soon bucket horizon.
const urgentDeadline = 3 * 24 * time.Hour

// Fallback is the stateless degraded ranker used when the engine fails
// or produces nothing. It fills the limit from four buckets: 40%
// popular, 30% newest, 20% high reward, 10% closing soon.
type Fallback struct {
	tasks    store.TaskReader
	behavior store.BehaviorReader
	logger   zerolog.Logger
}

// NewFallback creates a Fallback ranker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFallback(tasks store.TaskReader, behavior store.BehaviorReader, logger zerolog.Logger) *Fallback {
	return &Fallback{
		tasks:    tasks,
		behavior: behavior,
		logger:   logger.With().Str("component", "fallback").Logger(),
	}
}

// Rank produces the four-bucket list. The exclusion set is honored when
// available; a behavior-store failure only degrades the popular bucket.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (f *Fallback) Rank(ctx context.Context, req Request, excl ExclusionSet) ([]Item, error) {
	now := time.Now().UTC()
	q := store.CandidateQuery{
		Filters: req.Filters,
		Limit:   fallbackPoolBound(req.Limit),
		Now:     now,
		Order:   store.OrderNewest,
	}
	if excl.Predicate {
		q.ExcludeUserID = req.UserID
	} else {
		q.ExcludeIDs = excl.IDs
	}

	pool, err := f.tasks.QueryCandidates(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	engagement := f.recentEngagement(ctx, now)
	nPopular, nNewest, nReward, nUrgent := bucketShares(req.Limit)

	picked := make(map[int64]struct{}, req.Limit)
	items := make([]Item, 0, req.Limit)

	items = fillBucket(items, picked, popularBucket(pool, engagement), nPopular, ReasonPopular)
	items = fillBucket(items, picked, pool, nNewest, ReasonNewlyPosted) // pool is already newest-first
	items = fillBucket(items, picked, rewardBucket(pool), nReward, ReasonHighReward)
	items = fillBucket(items, picked, urgentBucket(pool, now), nUrgent, ReasonClosingSoon)

	// Top up from the newest bucket when the urgent or popular buckets
	// ran short.
	if len(items) < req.Limit {
		items = fillBucket(items, picked, pool, req.Limit-len(items), ReasonNewlyPosted)
	}

	for i := range items {
		items[i].Score = fallbackScore(i, req.Limit)
	}
	return items, nil
}

// fallbackPoolBound sizes the candidate pool for bucket derivation.
func fallbackPoolBound(limit int) int {
	bound := 10 * limit
	if bound < 200 {
		bound = 200
	}
	return bound
}

// bucketShares splits limit into the 40/30/20/10 shares. Integer
// truncation remainder goes to the urgent bucket so the shares always
// sum to limit.
func bucketShares(limit int) (popular, newest, reward, urgent int) {
	popular = limit * 40 / 100
	newest = limit * 30 / 100
	reward = limit * 20 / 100
	urgent = limit - popular - newest - reward
	return popular, newest, reward, urgent
}

// fallbackScore assigns a nominal descending score so the response
// contract (score in [0,1], ordered) holds on the degraded path.
func fallbackScore(index, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return 0.5 * float64(limit-index) / float64(limit)
}

func fillBucket(items []Item, picked map[int64]struct{}, bucket []models.Task, n int, reason string) []Item {
	for i := range bucket {
		if n <= 0 {
			break
		}
		t := bucket[i]
		if _, dup := picked[t.ID]; dup {
			continue
		}
		picked[t.ID] = struct{}{}
		items = append(items, Item{Task: t, Reason: reason})
		n--
	}
	return items
}

// recentEngagement counts distinct engaging users per task over the
// last 24 hours. On failure the popular bucket degrades to empty.
func (f *Fallback) recentEngagement(ctx context.Context, now time.Time) map[int64]int {
	rows, err := f.behavior.EngagementsSince(ctx, now.Add(-24*time.Hour), nil)
	if err != nil {
		f.logger.Warn().Err(err).Msg("engagement load failed, popular bucket empty")
		return nil
	}
	counts := make(map[int64]int, len(rows))
	for _, e := range rows {
		counts[e.TaskID]++
	}
	return counts
}

func popularBucket(pool []models.Task, engagement map[int64]int) []models.Task {
	if len(engagement) == 0 {
		return nil
	}
	bucket := make([]models.Task, 0, len(pool))
	for i := range pool {
		if engagement[pool[i].ID] > 0 {
			bucket = append(bucket, pool[i])
		}
	}
	sort.SliceStable(bucket, func(i, j int) bool {
		if engagement[bucket[i].ID] != engagement[bucket[j].ID] {
			return engagement[bucket[i].ID] > engagement[bucket[j].ID]
		}
		return bucket[i].ID > bucket[j].ID
	})
	return bucket
}

func rewardBucket(pool []models.Task) []models.Task {
	bucket := append([]models.Task(nil), pool...)
	sort.SliceStable(bucket, func(i, j int) bool {
		if bucket[i].Reward != bucket[j].Reward {
			return bucket[i].Reward > bucket[j].Reward
		}
		return bucket[i].ID > bucket[j].ID
	})
	return bucket
}

func urgentBucket(pool []models.Task, now time.Time) []models.Task {
	cutoff := now.Add(urgentDeadline)
	bucket := make([]models.Task, 0, len(pool))
	for i := range pool {
		if pool[i].Deadline.After(now) && pool[i].Deadline.Before(cutoff) {
			bucket = append(bucket, pool[i])
		}
	}
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].Deadline.Before(bucket[j].Deadline)
	})
	return bucket
}
