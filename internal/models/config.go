// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ScorerWeights maps scorer name to fusion weight.
type ScorerWeights map[string]float64

// Value implements driver.Valuer.
func (w ScorerWeights) Value() (driver.Value, error) {
	if w == nil {
		return "{}", nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal scorer weights: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (w *ScorerWeights) Scan(src any) error {
	return scanJSON(src, w)
}

// RankingConfig is the persisted config record read by the ranker and the
// diversity filter and rewritten atomically by the offline optimizer.
// A single row; Version increments on every optimizer update.
type RankingConfig struct {
	ID                 int64         `json:"-" gorm:"primaryKey"`
	Weights            ScorerWeights `json:"weights" gorm:"type:text"`
	DiversityThreshold float64       `json:"diversity_threshold"`
	Version            int64         `json:"version"`
	UpdatedAt          time.Time     `json:"updated_at"`
}
