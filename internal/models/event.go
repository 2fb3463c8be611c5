// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package models

import "time"

// EventKind classifies a user-task interaction.
type EventKind string

const (
	EventView     EventKind = "view"
	EventClick    EventKind = "click"
	EventApply    EventKind = "apply"
	EventAccept   EventKind = "accept"
	EventComplete EventKind = "complete"
	EventSkip     EventKind = "skip"
)

// Valid reports whether the kind is known.
func (k EventKind) Valid() bool {
	switch k {
	case EventView, EventClick, EventApply, EventAccept, EventComplete, EventSkip:
		return true
	}
	return false
}

// Coalesced reports whether same-day events of this kind are deduplicated
// per (user, task, kind, date) instead of appended.
func (k EventKind) Coalesced() bool {
	return k == EventView || k == EventClick
}

// Qualifying reports whether the kind triggers a preference refresh and
// cache invalidation for the user.
func (k EventKind) Qualifying() bool {
	return k == EventAccept || k == EventComplete
}

// InteractionEvent is a recorded user-task interaction.
// For view/click kinds (UserID, TaskID, Kind, EventDate) is unique; the
// behavior store upserts on that key so same-day duplicates coalesce.
type InteractionEvent struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID          string    `json:"user_id" gorm:"uniqueIndex:idx_event_dedup;index;not null"`
	TaskID          int64     `json:"task_id" gorm:"uniqueIndex:idx_event_dedup;index;not null"`
	Kind            EventKind `json:"kind" gorm:"type:text;uniqueIndex:idx_event_dedup"`
	// EventDate is set only for coalesced kinds (view/click); the partial
	// unique index leaves free-appending kinds unconstrained.
	EventDate       string    `json:"event_date,omitempty" gorm:"uniqueIndex:idx_event_dedup,where:event_date <> ''"`
	Timestamp       time.Time `json:"timestamp" gorm:"index"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	DeviceType      string    `json:"device_type,omitempty"`
	Metadata        Metadata  `json:"metadata,omitempty" gorm:"type:text"`
	IsRecommended   bool      `json:"is_recommended"`
	Anonymized      bool      `json:"anonymized"`
}

// DateKey returns the calendar-day dedup key for a timestamp, in UTC.
func DateKey(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

// RecommendationFeedback records the outcome of a served recommendation.
// Consumed only by the offline optimizer.
type RecommendationFeedback struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	RecommendationID string    `json:"recommendation_id" gorm:"index;not null"`
	UserID           string    `json:"user_id" gorm:"index;not null"`
	TaskID           int64     `json:"task_id" gorm:"index;not null"`
	TopScorer        string    `json:"top_scorer"`
	Clicked          bool      `json:"clicked"`
	Accepted         bool      `json:"accepted"`
	CreatedAt        time.Time `json:"created_at" gorm:"index"`
}
