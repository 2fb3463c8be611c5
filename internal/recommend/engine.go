// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/metrics"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/prefs"
	"github.com/openmarket/taskfeed/internal/recommend/scorers"
	"github.com/openmarket/taskfeed/internal/store"
)

// NewPosterReason is appended to an item's reason when the freshness
// scorer's new-poster branch fired.
const NewPosterReason = "new user posted, priority recommendation"

// reasonPhrases maps scorer names to the short phrases composed into an
// item's reason string.
var reasonPhrases = map[string]string{
	scorers.NameContent:       "matches your interests",
	scorers.NameCollaborative: "people with similar activity engaged",
	scorers.NameLocation:      "close to you",
	scorers.NamePopularity:    "trending now",
	scorers.NameFreshness:     "newly posted",
}

// EngineOptions configures the hybrid ranking engine.
type EngineOptions struct {
	// MinCandidates floors the candidate fetch; the effective bound is
	// max(CandidateFactor*limit, MinCandidates).
	MinCandidates   int
	CandidateFactor int
	// ScoreTimeout bounds the scorer fan-out per request.
	ScoreTimeout time.Duration
}

// Engine ranks candidate tasks by weighted scorer fusion.
type Engine struct {
	tasks   store.TaskReader
	loader  *scorers.Loader
	scorers []scorers.Scorer
	opts    EngineOptions
	logger  zerolog.Logger
}

// NewEngine creates an Engine over the given scorer set.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(tasks store.TaskReader, loader *scorers.Loader, set []scorers.Scorer, opts EngineOptions, logger zerolog.Logger) *Engine {
	if opts.MinCandidates <= 0 {
		opts.MinCandidates = 200
	}
	if opts.CandidateFactor <= 0 {
		opts.CandidateFactor = 10
	}
	if opts.ScoreTimeout <= 0 {
		opts.ScoreTimeout = 2 * time.Second
	}
	return &Engine{
		tasks:   tasks,
		loader:  loader,
		scorers: set,
		opts:    opts,
		logger:  logger.With().Str("component", "engine").Logger(),
	}
}

// Rank fetches eligible candidates and produces the fused ranking.
// Returns nil items (no error) when the filtered candidate set is
// empty; the facade decides whether to fall back.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Rank(ctx context.Context, req Request, user *models.User, vec *prefs.Vector, excl ExclusionSet, snap *Snapshot) ([]Item, error) {
	now := time.Now().UTC()
	candidates, err := e.fetchCandidates(ctx, req, user, excl, now)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	stats := e.loader.Load(ctx, req.UserID, candidates, now)
	weights := effectiveWeights(req.Algorithm, snap)

	scoreCtx, cancel := context.WithTimeout(ctx, e.opts.ScoreTimeout)
	defer cancel()
	runs := e.runScorers(scoreCtx, candidates, user, vec, stats, now)

	items := e.fuse(candidates, runs, weights)
	if noContribution(items) {
		// Every scorer failed or scored zero across the board; the
		// degraded ranker will produce something more useful.
		return nil, nil
	}
	sortItems(items)
	return items, nil
}

// noContribution reports whether not a single scorer contributed a
// positive signal to any item.
func noContribution(items []Item) bool {
	for i := range items {
		if items[i].TopScorer != "" {
			return false
		}
	}
	return true
}

// fetchCandidates queries open, future-deadline tasks matching the
// request filters, minus the exclusion set. Large exclusion sets ride
// the anti-join predicate instead of an id list.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) fetchCandidates(ctx context.Context, req Request, user *models.User, excl ExclusionSet, now time.Time) ([]models.Task, error) {
	bound := e.opts.CandidateFactor * req.Limit
	if bound < e.opts.MinCandidates {
		bound = e.opts.MinCandidates
	}

	q := store.CandidateQuery{
		Filters: req.Filters,
		Limit:   bound,
		Now:     now,
		Order:   store.OrderNewest,
	}
	if excl.Predicate {
		q.ExcludeUserID = user.ID
	} else {
		q.ExcludeIDs = excl.IDs
	}

	tasks, err := e.tasks.QueryCandidates(ctx, q)
	if err != nil {
		return nil, err
	}

	// Belt and braces: the query already applies the exclusion, but a
	// task leaking past it must never reach the caller.
	out := tasks[:0]
	seen := make(map[int64]struct{}, len(tasks))
	for i := range tasks {
		t := tasks[i]
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		if !excl.Predicate && excl.Contains(t.ID) {
			continue
		}
		if t.OwnerID == user.ID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// scorerRun holds one scorer's results for every candidate, index
// aligned with the candidate slice.
type scorerRun struct {
	name    string
	results []scorers.Result
}

// runScorers fans out one goroutine per scorer across all candidates.
// A scorer error zeroes that candidate's contribution and execution
// continues.
func (e *Engine) runScorers(ctx context.Context, candidates []models.Task, user *models.User, vec *prefs.Vector, stats *scorers.EngagementStats, now time.Time) []scorerRun {
	runs := make([]scorerRun, len(e.scorers))
	var wg sync.WaitGroup

	for i, s := range e.scorers {
		wg.Add(1)
		go func(idx int, s scorers.Scorer) {
			defer wg.Done()
			run := scorerRun{name: s.Name(), results: make([]scorers.Result, len(candidates))}
			for ci := range candidates {
				if ctx.Err() != nil {
					break
				}
				res, err := s.Score(scorers.Input{
					Task:   candidates[ci],
					User:   user,
					Vector: vec,
					Stats:  stats,
					Now:    now,
				})
				if err != nil {
					metrics.ScorerFailures.WithLabelValues(s.Name()).Inc()
					e.logger.Warn().Err(err).Str("scorer", s.Name()).
						Int64("task_id", candidates[ci].ID).Msg("scorer failed, contribution zeroed")
					res = scorers.Result{}
				}
				run.results[ci] = res
			}
			runs[idx] = run
		}(i, s)
	}

	wg.Wait()
	return runs
}

// fuse combines scorer outputs into weighted fused scores with reasons.
func (e *Engine) fuse(candidates []models.Task, runs []scorerRun, weights map[string]float64) []Item {
	items := make([]Item, 0, len(candidates))

	for ci := range candidates {
		var fused float64
		var newPoster bool
		contributions := make([]contribution, 0, len(runs))

		for _, run := range runs {
			w := weights[run.name]
			if w <= 0 {
				continue
			}
			res := run.results[ci]
			fused += w * res.Value
			if run.name == scorers.NameFreshness && res.NewPoster {
				newPoster = true
			}
			if res.Value > 0 && !res.Cold {
				contributions = append(contributions, contribution{name: run.name, weighted: w * res.Value})
			}
		}

		if fused < 0 {
			fused = 0
		}
		if fused > 1 {
			fused = 1
		}
		items = append(items, Item{
			Task:      candidates[ci],
			Score:     fused,
			Reason:    composeReason(contributions, newPoster),
			TopScorer: topContributor(contributions),
		})
	}
	return items
}

type contribution struct {
	name     string
	weighted float64
}

// rankContributions orders contributions by weighted value descending,
// then by fusion order for determinism.
func rankContributions(contributions []contribution) []contribution {
	order := make(map[string]int, len(scorers.Names))
	for i, n := range scorers.Names {
		order[n] = i
	}
	sort.SliceStable(contributions, func(i, j int) bool {
		if contributions[i].weighted != contributions[j].weighted {
			return contributions[i].weighted > contributions[j].weighted
		}
		return order[contributions[i].name] < order[contributions[j].name]
	})
	return contributions
}

// composeReason builds the human-readable reason from the top two
// contributing scorers.
func composeReason(contributions []contribution, newPoster bool) string {
	contributions = rankContributions(contributions)

	var parts []string
	for i, c := range contributions {
		if i == 2 {
			break
		}
		parts = append(parts, reasonPhrases[c.name])
	}
	if newPoster {
		parts = append(parts, NewPosterReason)
	}
	if len(parts) == 0 {
		return "recommended for you"
	}
	return strings.Join(parts, "; ")
}

// topContributor names the scorer with the largest weighted share.
func topContributor(contributions []contribution) string {
	if len(contributions) == 0 {
		return ""
	}
	return rankContributions(contributions)[0].name
}

// sortItems orders by fused score descending; ties break by newer
// creation time, then higher reward, then task id descending.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
			return a.Task.CreatedAt.After(b.Task.CreatedAt)
		}
		if a.Task.Reward != b.Task.Reward {
			return a.Task.Reward > b.Task.Reward
		}
		return a.Task.ID > b.Task.ID
	})
}
