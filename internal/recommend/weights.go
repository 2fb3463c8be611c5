// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/recommend/scorers"
	"github.com/openmarket/taskfeed/internal/store"
)

// Snapshot is one immutable generation of the tunable ranking
// parameters. Requests capture a snapshot at entry and never observe a
// mid-request update.
type Snapshot struct {
	Weights            map[string]float64
	DiversityThreshold float64
	Version            int64
}

// DefaultSnapshot returns the design-default weights. The weights sum
// to 0.95; the remainder is headroom for a future scorer.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		Weights: map[string]float64{
			scorers.NameContent:       0.35,
			scorers.NameCollaborative: 0.25,
			scorers.NameFreshness:     0.15,
			scorers.NameLocation:      0.12,
			scorers.NamePopularity:    0.08,
		},
		DiversityThreshold: 0.5,
		Version:            0,
	}
}

// ConfigHolder owns the current Snapshot. Readers call Current; the
// optimizer persists a new generation through Apply.
type ConfigHolder struct {
	current  atomic.Pointer[Snapshot]
	store    store.ConfigStore
	defaults *Snapshot
	logger   zerolog.Logger
}

// NewConfigHolder creates a holder seeded with the defaults. Call Load
// to pick up a previously persisted generation.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConfigHolder(cs store.ConfigStore, defaults *Snapshot, logger zerolog.Logger) *ConfigHolder {
	if defaults == nil {
		defaults = DefaultSnapshot()
	}
	h := &ConfigHolder{
		store:    cs,
		defaults: defaults,
		logger:   logger.With().Str("component", "ranking_config").Logger(),
	}
	h.current.Store(defaults)
	return h
}

// Load replaces the snapshot with the persisted record, if one exists.
// A missing record keeps the defaults; a store failure is returned so
// startup can decide whether to proceed.
func (h *ConfigHolder) Load(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	rec, err := h.store.LoadRankingConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ranking config: %w", err)
	}

	snap := &Snapshot{
		Weights:            map[string]float64(rec.Weights),
		DiversityThreshold: rec.DiversityThreshold,
		Version:            rec.Version,
	}
	h.current.Store(snap)
	h.logger.Info().Int64("version", rec.Version).Msg("ranking config loaded")
	return nil
}

// Current returns the active snapshot. Never nil.
func (h *ConfigHolder) Current() *Snapshot {
	return h.current.Load()
}

// Apply persists a new generation and swaps it in. Used by the
// optimizer; the new version is the current version plus one.
func (h *ConfigHolder) Apply(ctx context.Context, weights map[string]float64, diversityThreshold float64) error {
	prev := h.Current()
	next := &Snapshot{
		Weights:            weights,
		DiversityThreshold: diversityThreshold,
		Version:            prev.Version + 1,
	}

	if h.store != nil {
		rec := &models.RankingConfig{
			Weights:            models.ScorerWeights(weights),
			DiversityThreshold: diversityThreshold,
			Version:            next.Version,
			UpdatedAt:          time.Now().UTC(),
		}
		if err := h.store.SaveRankingConfig(ctx, rec); err != nil {
			return fmt.Errorf("save ranking config: %w", err)
		}
	}

	h.current.Store(next)
	h.logger.Info().Int64("version", next.Version).
		Float64("diversity_threshold", diversityThreshold).
		Msg("ranking config updated")
	return nil
}

// effectiveWeights resolves the weight table for the requested
// algorithm: hybrid uses the snapshot, the single-scorer algorithms run
// their scorer at full weight.
func effectiveWeights(algorithm string, snap *Snapshot) map[string]float64 {
	switch algorithm {
	case AlgorithmContent:
		return map[string]float64{scorers.NameContent: 1.0}
	case AlgorithmCollaborative:
		return map[string]float64{scorers.NameCollaborative: 1.0}
	default:
		return snap.Weights
	}
}
