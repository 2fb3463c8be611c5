// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package scorers

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/cache"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// engagementKinds are the event kinds that count as engagement for the
// collaborative and popularity scorers.
var engagementKinds = []models.EventKind{models.EventClick, models.EventApply, models.EventAccept}

// EngagementStats is the per-request snapshot the scorers read instead of
// touching stores. A nil snapshot, or missing entries within one, score
// as zero engagement.
type EngagementStats struct {
	// TaskEngagers maps task id to the set of users who clicked, applied,
	// or accepted it within the engagement horizon.
	TaskEngagers map[int64]map[string]struct{}

	// UserEngaged lists task ids the requesting user engaged with.
	UserEngaged []int64

	// Recent24h maps task id to the count of distinct users who engaged
	// with it in the last 24 hours.
	Recent24h map[int64]int

	// PosterCreatedAt maps poster user id to account creation time.
	PosterCreatedAt map[string]time.Time
}

// Engagers returns the engaging-user set for a task, possibly nil.
func (s *EngagementStats) Engagers(taskID int64) map[string]struct{} {
	if s == nil {
		return nil
	}
	return s.TaskEngagers[taskID]
}

// RecentCount returns the 24h distinct-engager count for a task.
func (s *EngagementStats) RecentCount(taskID int64) int {
	if s == nil {
		return 0
	}
	return s.Recent24h[taskID]
}

// PosterAge returns the poster's account age at now, or -1 when unknown.
func (s *EngagementStats) PosterAge(posterID string, now time.Time) time.Duration {
	if s == nil {
		return -1
	}
	created, ok := s.PosterCreatedAt[posterID]
	if !ok {
		return -1
	}
	return now.Sub(created)
}

// LoaderOptions configures the stats Loader.
type LoaderOptions struct {
	Horizon       time.Duration // engagement lookback for collaborative sets
	PopularityTTL time.Duration // per-task 24h count cache TTL
}

// Loader prefetches the engagement snapshot one request at a time. All
// failures degrade: a source that cannot be read leaves its portion of
// the snapshot empty and the affected scorers contribute zero.
type Loader struct {
	behavior store.BehaviorReader
	users    store.UserReader
	cache    cache.Cache
	horizon  time.Duration
	popTTL   time.Duration
	logger   zerolog.Logger
}

// NewLoader creates a Loader.
func NewLoader(behavior store.BehaviorReader, users store.UserReader, c cache.Cache, opts LoaderOptions, logger zerolog.Logger) *Loader {
	if opts.Horizon <= 0 {
		opts.Horizon = 30 * 24 * time.Hour
	}
	if opts.PopularityTTL <= 0 {
		opts.PopularityTTL = time.Hour
	}
	return &Loader{
		behavior: behavior,
		users:    users,
		cache:    c,
		horizon:  opts.Horizon,
		popTTL:   opts.PopularityTTL,
		logger:   logger.With().Str("component", "scorer_stats").Logger(),
	}
}

// Load builds the snapshot for one user and candidate set.
func (l *Loader) Load(ctx context.Context, userID string, candidates []models.Task, now time.Time) *EngagementStats {
	stats := &EngagementStats{
		TaskEngagers:    make(map[int64]map[string]struct{}),
		Recent24h:       make(map[int64]int, len(candidates)),
		PosterCreatedAt: make(map[string]time.Time),
	}

	l.loadEngagers(ctx, userID, now, stats)
	l.loadRecentCounts(ctx, candidates, now, stats)
	l.loadPosterAges(ctx, candidates, stats)
	return stats
}

func (l *Loader) loadEngagers(ctx context.Context, userID string, now time.Time, stats *EngagementStats) {
	rows, err := l.behavior.EngagementsSince(ctx, now.Add(-l.horizon), engagementKinds)
	if err != nil {
		l.logger.Warn().Err(err).Msg("engagement load failed, collaborative scoring degraded")
		return
	}

	engaged := make(map[int64]struct{})
	for _, e := range rows {
		set, ok := stats.TaskEngagers[e.TaskID]
		if !ok {
			set = make(map[string]struct{})
			stats.TaskEngagers[e.TaskID] = set
		}
		set[e.UserID] = struct{}{}
		if e.UserID == userID {
			engaged[e.TaskID] = struct{}{}
		}
	}
	for id := range engaged {
		stats.UserEngaged = append(stats.UserEngaged, id)
	}
}

// loadRecentCounts fills Recent24h, preferring cached per-task counts and
// falling back to a single scan for the misses.
func (l *Loader) loadRecentCounts(ctx context.Context, candidates []models.Task, now time.Time, stats *EngagementStats) {
	var misses []int64
	for i := range candidates {
		id := candidates[i].ID
		raw, ok := l.cache.Get(ctx, popularityKey(id))
		if !ok {
			misses = append(misses, id)
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			misses = append(misses, id)
			continue
		}
		stats.Recent24h[id] = n
	}
	if len(misses) == 0 {
		return
	}

	rows, err := l.behavior.EngagementsSince(ctx, now.Add(-24*time.Hour), engagementKinds)
	if err != nil {
		l.logger.Warn().Err(err).Msg("24h engagement load failed, popularity scoring degraded")
		return
	}

	distinct := make(map[int64]map[string]struct{})
	for _, e := range rows {
		set, ok := distinct[e.TaskID]
		if !ok {
			set = make(map[string]struct{})
			distinct[e.TaskID] = set
		}
		set[e.UserID] = struct{}{}
	}

	for _, id := range misses {
		n := len(distinct[id])
		stats.Recent24h[id] = n
		if raw, err := json.Marshal(n); err == nil {
			l.cache.Set(ctx, popularityKey(id), raw, l.popTTL)
		}
	}
}

func (l *Loader) loadPosterAges(ctx context.Context, candidates []models.Task, stats *EngagementStats) {
	for i := range candidates {
		posterID := candidates[i].OwnerID
		if posterID == "" {
			continue
		}
		if _, seen := stats.PosterCreatedAt[posterID]; seen {
			continue
		}
		u, err := l.users.GetUser(ctx, posterID)
		if err != nil {
			continue
		}
		stats.PosterCreatedAt[posterID] = u.CreatedAt
	}
}

func popularityKey(taskID int64) string {
	return cache.Key(cache.NSPopularity, strconv.FormatInt(taskID, 10))
}
