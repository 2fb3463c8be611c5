// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package optimizer re-tunes the ranking parameters out-of-band from
// observed recommendation outcomes. Each run reads the feedback window,
// computes a per-scorer engagement composite, nudges the scorer weights
// a bounded step toward it, derives a diversity threshold from per-user
// click spread, and persists the new generation through the config
// holder.
package optimizer

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/metrics"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/recommend"
	"github.com/openmarket/taskfeed/internal/store"
)

// clickWeight and acceptWeight mix CTR and accept rate into the
// per-scorer composite.
const (
	clickWeight  = 0.6
	acceptWeight = 0.4
)

// minFeedbackRows skips a run when the window holds too little signal
// to move weights on.
const minFeedbackRows = 20

// Options tunes the optimizer. Zero values take defaults.
type Options struct {
	// Interval is the wall time between runs.
	Interval time.Duration
	// Lookback is the feedback window each run evaluates.
	Lookback time.Duration
	// MaxStep bounds the relative weight change per run.
	MaxStep float64
}

// Optimizer owns the periodic re-tuning loop. It is run under the
// supervisor tree.
type Optimizer struct {
	feedback store.FeedbackStore
	tasks    store.TaskReader
	config   *recommend.ConfigHolder
	opts     Options
	logger   zerolog.Logger
}

// New creates the optimizer.
func New(feedback store.FeedbackStore, tasks store.TaskReader, config *recommend.ConfigHolder, opts Options, logger zerolog.Logger) *Optimizer {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 7 * 24 * time.Hour
	}
	if opts.MaxStep <= 0 || opts.MaxStep > 1 {
		opts.MaxStep = 0.10
	}
	return &Optimizer{
		feedback: feedback,
		tasks:    tasks,
		config:   config,
		opts:     opts,
		logger:   logger.With().Str("service", "optimizer").Logger(),
	}
}

// Serve implements suture.Service.
func (o *Optimizer) Serve(ctx context.Context) error {
	o.logger.Info().
		Dur("interval", o.opts.Interval).
		Dur("lookback", o.opts.Lookback).
		Msg("optimizer running")

	ticker := time.NewTicker(o.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Msg("optimizer shutting down")
			return ctx.Err()
		case <-ticker.C:
			o.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates the feedback window and, when there is enough
// signal, persists a new parameter generation.
func (o *Optimizer) RunOnce(ctx context.Context) {
	since := time.Now().UTC().Add(-o.opts.Lookback)
	rows, err := o.feedback.FeedbackSince(ctx, since)
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("error").Inc()
		o.logger.Warn().Err(err).Msg("feedback read failed")
		return
	}
	if len(rows) < minFeedbackRows {
		metrics.OptimizerRuns.WithLabelValues("skipped").Inc()
		o.logger.Debug().Int("rows", len(rows)).Msg("not enough feedback, run skipped")
		return
	}

	snap := o.config.Current()
	weights := o.nudgeWeights(snap.Weights, composites(rows))
	threshold := o.diversityThreshold(ctx, rows)

	if err := o.config.Apply(ctx, weights, threshold); err != nil {
		metrics.OptimizerRuns.WithLabelValues("error").Inc()
		o.logger.Warn().Err(err).Msg("config apply failed")
		return
	}
	metrics.OptimizerRuns.WithLabelValues("updated").Inc()
	o.logger.Info().
		Int("feedback_rows", len(rows)).
		Float64("diversity_threshold", threshold).
		Msg("ranking parameters updated")
}

// composites aggregates feedback per top scorer into
// clickWeight*CTR + acceptWeight*accept-rate.
func composites(rows []models.RecommendationFeedback) map[string]float64 {
	type tally struct {
		shown, clicked, accepted int
	}
	byScorer := map[string]*tally{}
	for _, fb := range rows {
		if fb.TopScorer == "" {
			continue
		}
		t := byScorer[fb.TopScorer]
		if t == nil {
			t = &tally{}
			byScorer[fb.TopScorer] = t
		}
		t.shown++
		if fb.Clicked {
			t.clicked++
		}
		if fb.Accepted {
			t.accepted++
		}
	}

	out := make(map[string]float64, len(byScorer))
	for name, t := range byScorer {
		ctr := float64(t.clicked) / float64(t.shown)
		acceptRate := float64(t.accepted) / float64(t.shown)
		out[name] = clickWeight*ctr + acceptWeight*acceptRate
	}
	return out
}

// nudgeWeights moves each weight toward the normalized composite by at
// most MaxStep of its current value, then rescales so the total weight
// mass is unchanged. A scorer with no observations keeps its weight.
func (o *Optimizer) nudgeWeights(current, composite map[string]float64) map[string]float64 {
	var mass, compositeSum float64
	for _, w := range current {
		mass += w
	}
	for _, c := range composite {
		compositeSum += c
	}

	next := make(map[string]float64, len(current))
	for name, w := range current {
		next[name] = w
		c, ok := composite[name]
		if !ok || compositeSum == 0 {
			continue
		}
		target := (c / compositeSum) * mass
		step := target - w
		bound := o.opts.MaxStep * w
		if math.Abs(step) > bound {
			step = math.Copysign(bound, step)
		}
		next[name] = w + step
	}

	var nextSum float64
	for _, w := range next {
		nextSum += w
	}
	if nextSum > 0 {
		scale := mass / nextSum
		for name := range next {
			next[name] *= scale
		}
	}
	return next
}

// diversityThreshold maps the average number of distinct task types a
// user clicked to a threshold tier.
func (o *Optimizer) diversityThreshold(ctx context.Context, rows []models.RecommendationFeedback) float64 {
	taskTypes := map[int64]models.TaskType{}
	typesByUser := map[string]map[models.TaskType]struct{}{}

	for _, fb := range rows {
		if !fb.Clicked {
			continue
		}
		typ, ok := taskTypes[fb.TaskID]
		if !ok {
			task, err := o.tasks.GetTask(ctx, fb.TaskID)
			if err != nil {
				continue
			}
			typ = task.Type
			taskTypes[fb.TaskID] = typ
		}
		set := typesByUser[fb.UserID]
		if set == nil {
			set = map[models.TaskType]struct{}{}
			typesByUser[fb.UserID] = set
		}
		set[typ] = struct{}{}
	}

	if len(typesByUser) == 0 {
		return o.config.Current().DiversityThreshold
	}
	var total int
	for _, set := range typesByUser {
		total += len(set)
	}
	avg := float64(total) / float64(len(typesByUser))

	switch {
	case avg >= 3:
		return 0.6
	case avg >= 2:
		return 0.5
	default:
		return 0.4
	}
}

// String returns the service name for supervisor logging.
func (o *Optimizer) String() string { return "optimizer" }
