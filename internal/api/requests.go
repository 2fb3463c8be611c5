// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package api

import (
	"github.com/openmarket/taskfeed/internal/models"
)

// RecommendRequest is the body of POST /api/v1/recommendations.
type RecommendRequest struct {
	UserID    string           `json:"user_id" validate:"required,max=128"`
	Limit     int              `json:"limit" validate:"omitempty,min=1,max=50"`
	Algorithm string           `json:"algorithm" validate:"omitempty,oneof=content collaborative hybrid"`
	Filters   RecommendFilters `json:"filters"`
}

// RecommendFilters narrows the candidate pool.
type RecommendFilters struct {
	TaskType string `json:"task_type" validate:"omitempty,max=64"`
	Location string `json:"location" validate:"omitempty,max=128"`
	Keyword  string `json:"keyword" validate:"omitempty,max=128"`
}

// EventRequest is the body of POST /api/v1/events.
type EventRequest struct {
	UserID          string          `json:"user_id" validate:"required,max=128"`
	TaskID          int64           `json:"task_id" validate:"required,gt=0"`
	Kind            string          `json:"kind" validate:"required,oneof=view click apply accept complete skip"`
	DurationSeconds int             `json:"duration_seconds" validate:"omitempty,min=0"`
	DeviceType      string          `json:"device_type" validate:"omitempty,max=128"`
	Metadata        models.Metadata `json:"metadata"`
	IsRecommended   bool            `json:"is_recommended"`

	RecommendationID string `json:"recommendation_id" validate:"omitempty,max=64"`
	TopScorer        string `json:"top_scorer" validate:"omitempty,max=32"`
}
