// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package store defines the persistence contracts consumed by the
// recommendation pipeline. The core reads users and tasks owned by external
// subsystems, owns interaction events, and shares the preferences record
// with the preferences subsystem.
//
// Two implementations exist: postgres (GORM) and memory (standalone mode
// and tests).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/openmarket/taskfeed/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// TaskFilters narrows a candidate query. Zero values mean "any".
type TaskFilters struct {
	TaskType string `json:"task_type,omitempty"`
	Location string `json:"location,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
}

// Empty reports whether no filter is set.
func (f TaskFilters) Empty() bool {
	return f == TaskFilters{}
}

// CandidateOrder selects the sort applied by a candidate query.
type CandidateOrder int

const (
	// OrderNewest sorts by creation time descending.
	OrderNewest CandidateOrder = iota
	// OrderReward sorts by reward descending.
	OrderReward
	// OrderDeadline sorts by deadline ascending.
	OrderDeadline
)

// CandidateQuery selects recommendation-eligible tasks: open status,
// deadline after Now, matching Filters. Exclusion takes one of two shapes:
// a small set is passed as ExcludeIDs and filtered client-side by the
// caller, a large one sets ExcludeUserID and the store applies the five
// exclusion derivations as anti-join predicates instead of serializing the
// set into the query.
type CandidateQuery struct {
	Filters        TaskFilters
	ExcludeIDs     []int64
	ExcludeUserID  string
	Limit          int
	Now            time.Time
	Order          CandidateOrder
	DeadlineWithin time.Duration // 0 = any future deadline
}

// TaskReader provides read access to tasks and their relations.
type TaskReader interface {
	// GetTask returns a task by id or ErrNotFound.
	GetTask(ctx context.Context, id int64) (*models.Task, error)

	// QueryCandidates returns recommendation-eligible tasks.
	QueryCandidates(ctx context.Context, q CandidateQuery) ([]models.Task, error)

	// TasksPostedBy returns ids of tasks owned by the user.
	TasksPostedBy(ctx context.Context, userID string) ([]int64, error)

	// TasksTakenBy returns ids of tasks where the user is the single taker.
	TasksTakenBy(ctx context.Context, userID string) ([]int64, error)

	// ApplicationsBy returns ids of tasks the user applied to.
	ApplicationsBy(ctx context.Context, userID string) ([]int64, error)

	// ParticipantTasks returns ids of tasks where the user participates
	// with one of the given statuses.
	ParticipantTasks(ctx context.Context, userID string, statuses []models.ParticipantStatus) ([]int64, error)
}

// UserReader provides read access to user profiles.
type UserReader interface {
	// GetUser returns a user by id or ErrNotFound.
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// PreferenceStore reads and writes per-user preference records. The learned
// overlay written by the vectorizer never erases declared entries.
type PreferenceStore interface {
	// GetPreferences returns the user's record or ErrNotFound.
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)

	// UpsertLearned replaces only the learned overlay of the record,
	// creating the record if absent. Idempotent; safe as the single-writer
	// collapse target for concurrent refreshes.
	UpsertLearned(ctx context.Context, userID string, overlay models.WeightedFields) error
}

// Engagement is one (task, user) behavior pairing used by the collaborative
// and popularity scorers.
type Engagement struct {
	TaskID int64
	UserID string
}

// BehaviorReader queries interaction events.
type BehaviorReader interface {
	// EventsByUser returns the user's events, newest first. kind empty
	// means any kind; limit <= 0 means no limit.
	EventsByUser(ctx context.Context, userID string, kind models.EventKind, since time.Time, limit int) ([]models.InteractionEvent, error)

	// EventsByTask returns the task's events, newest first.
	EventsByTask(ctx context.Context, taskID int64, kind models.EventKind, since time.Time) ([]models.InteractionEvent, error)

	// EngagementsSince returns distinct (task, user) pairs for events of
	// the given kinds since the cutoff.
	EngagementsSince(ctx context.Context, since time.Time, kinds []models.EventKind) ([]Engagement, error)
}

// BehaviorWriter persists interaction events.
type BehaviorWriter interface {
	// UpsertDaily coalesces a view/click into the existing same-day row,
	// updating duration and metadata in place, or inserts a new row.
	// Returns true when an existing row was updated. The implementation
	// must lock at most the single conflicting row.
	UpsertDaily(ctx context.Context, ev *models.InteractionEvent) (coalesced bool, err error)

	// Append inserts a free-appending event row.
	Append(ctx context.Context, ev *models.InteractionEvent) error

	// EventsOlderThan returns non-anonymized events older than the cutoff.
	EventsOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.InteractionEvent, error)

	// Anonymize rewrites an event's device and metadata in place and marks
	// it anonymized. Rows are never deleted by this path.
	Anonymize(ctx context.Context, id int64, device string, md models.Metadata) error
}

// BehaviorStore combines behavior reads and writes.
type BehaviorStore interface {
	BehaviorReader
	BehaviorWriter
}

// HistoryReader queries the append-only task audit log.
type HistoryReader interface {
	// HistoryByUser returns the user's audit rows since the cutoff.
	HistoryByUser(ctx context.Context, userID string, since time.Time) ([]models.TaskHistory, error)

	// HistoryTaskIDs returns ids of tasks where the user appears with one
	// of the given actions.
	HistoryTaskIDs(ctx context.Context, userID string, actions []models.HistoryAction) ([]int64, error)
}

// FeedbackStore persists recommendation outcomes for the optimizer.
type FeedbackStore interface {
	AppendFeedback(ctx context.Context, fb *models.RecommendationFeedback) error
	FeedbackSince(ctx context.Context, since time.Time) ([]models.RecommendationFeedback, error)
}

// ConfigStore persists the ranking config record.
type ConfigStore interface {
	// LoadRankingConfig returns the persisted record or ErrNotFound when
	// the optimizer has never run.
	LoadRankingConfig(ctx context.Context) (*models.RankingConfig, error)

	// SaveRankingConfig replaces the record atomically.
	SaveRankingConfig(ctx context.Context, rc *models.RankingConfig) error
}

// Stores bundles every contract a fully wired server needs.
type Stores struct {
	Tasks    TaskReader
	Users    UserReader
	Prefs    PreferenceStore
	Behavior BehaviorStore
	History  HistoryReader
	Feedback FeedbackStore
	Config   ConfigStore
}
