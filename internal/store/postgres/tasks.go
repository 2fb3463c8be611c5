// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// GetTask returns a task by id or store.ErrNotFound.
func (s *Store) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	var t models.Task
	err := s.db.WithContext(ctx).Take(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &t, nil
}

// QueryCandidates returns recommendation-eligible tasks. A non-empty
// ExcludeUserID pushes the five exclusion derivations into the query as
// anti-join predicates; ExcludeIDs uses a NOT IN list.
func (s *Store) QueryCandidates(ctx context.Context, q store.CandidateQuery) ([]models.Task, error) {
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}

	tx := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("status = ?", models.TaskStatusOpen).
		Where("deadline > ?", now)

	if q.DeadlineWithin > 0 {
		tx = tx.Where("deadline <= ?", now.Add(q.DeadlineWithin))
	}
	if q.Filters.TaskType != "" {
		tx = tx.Where("type = ?", q.Filters.TaskType)
	}
	if q.Filters.Location != "" {
		tx = tx.Where("LOWER(location) = LOWER(?)", q.Filters.Location)
	}
	if q.Filters.Keyword != "" {
		kw := "%" + q.Filters.Keyword + "%"
		tx = tx.Where("title ILIKE ? OR description ILIKE ?", kw, kw)
	}
	if len(q.ExcludeIDs) > 0 {
		tx = tx.Where("id NOT IN ?", q.ExcludeIDs)
	}
	if q.ExcludeUserID != "" {
		tx = antiJoinExclusions(tx, q.ExcludeUserID)
	}

	switch q.Order {
	case store.OrderReward:
		tx = tx.Order("reward DESC, id ASC")
	case store.OrderDeadline:
		tx = tx.Order("deadline ASC, id ASC")
	default:
		tx = tx.Order("created_at DESC, id ASC")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var out []models.Task
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return out, nil
}

// antiJoinExclusions applies the five exclusion derivations as NOT EXISTS
// predicates, keeping the exclusion set out of the wire protocol entirely.
func antiJoinExclusions(tx *gorm.DB, userID string) *gorm.DB {
	return tx.
		Where("owner_id <> ?", userID).
		Where("(taker_id IS NULL OR taker_id <> ?)", userID).
		Where("NOT EXISTS (SELECT 1 FROM task_applications a WHERE a.task_id = tasks.id AND a.applicant_id = ?)", userID).
		Where("NOT EXISTS (SELECT 1 FROM task_histories h WHERE h.task_id = tasks.id AND h.user_id = ? AND h.action IN ?)",
			userID, []models.HistoryAction{models.HistoryAccepted, models.HistoryCompleted}).
		Where("NOT EXISTS (SELECT 1 FROM task_participants p WHERE p.task_id = tasks.id AND p.user_id = ? AND p.status IN ?)",
			userID, []models.ParticipantStatus{models.ParticipantAccepted, models.ParticipantInProgress, models.ParticipantCompleted})
}

// TasksPostedBy returns ids of tasks owned by the user.
func (s *Store) TasksPostedBy(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("owner_id = ?", userID).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("tasks posted by %s: %w", userID, err)
	}
	return ids, nil
}

// TasksTakenBy returns ids of tasks where the user is the single taker.
func (s *Store) TasksTakenBy(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("taker_id = ?", userID).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("tasks taken by %s: %w", userID, err)
	}
	return ids, nil
}

// ApplicationsBy returns ids of tasks the user applied to.
func (s *Store) ApplicationsBy(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.TaskApplication{}).
		Where("applicant_id = ?", userID).Pluck("task_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("applications by %s: %w", userID, err)
	}
	return ids, nil
}

// ParticipantTasks returns ids of tasks where the user participates with
// one of the given statuses.
func (s *Store) ParticipantTasks(ctx context.Context, userID string, statuses []models.ParticipantStatus) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.TaskParticipant{}).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Pluck("task_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("participant tasks for %s: %w", userID, err)
	}
	return ids, nil
}
