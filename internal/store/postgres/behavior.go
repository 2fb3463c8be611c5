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
	"gorm.io/gorm/clause"

	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// UpsertDaily coalesces a same-day view/click into the existing row or
// inserts a new one. The transaction locks at most the single conflicting
// row (SELECT ... FOR UPDATE on the dedup key), per the contract.
func (s *Store) UpsertDaily(ctx context.Context, ev *models.InteractionEvent) (bool, error) {
	coalesced := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.InteractionEvent
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND task_id = ? AND kind = ? AND event_date = ?",
				ev.UserID, ev.TaskID, ev.Kind, ev.EventDate).
			Take(&existing).Error

		if err == nil {
			coalesced = true
			ev.ID = existing.ID
			return tx.Model(&existing).Updates(map[string]any{
				"duration_seconds": ev.DurationSeconds,
				"metadata":         ev.Metadata,
				"timestamp":        ev.Timestamp,
				"is_recommended":   existing.IsRecommended || ev.IsRecommended,
			}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// A concurrent writer may insert between our select and create;
		// the partial unique index resolves the race.
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "task_id"}, {Name: "kind"}, {Name: "event_date"},
			},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				// Inline literal: a bound parameter here keeps the database
				// from matching the predicate to the partial unique index.
				clause.Expr{SQL: "event_date <> ''"},
			}},
			DoUpdates: clause.AssignmentColumns([]string{"duration_seconds", "metadata", "timestamp"}),
		}).Create(ev).Error
	})
	if err != nil {
		return false, fmt.Errorf("upsert daily event: %w", err)
	}
	return coalesced, nil
}

// Append inserts a free-appending event row.
func (s *Store) Append(ctx context.Context, ev *models.InteractionEvent) error {
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// EventsByUser returns the user's events, newest first.
func (s *Store) EventsByUser(ctx context.Context, userID string, kind models.EventKind, since time.Time, limit int) ([]models.InteractionEvent, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if kind != "" {
		tx = tx.Where("kind = ?", kind)
	}
	if !since.IsZero() {
		tx = tx.Where("timestamp >= ?", since)
	}
	tx = tx.Order("timestamp DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var out []models.InteractionEvent
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("events by user %s: %w", userID, err)
	}
	return out, nil
}

// EventsByTask returns the task's events, newest first.
func (s *Store) EventsByTask(ctx context.Context, taskID int64, kind models.EventKind, since time.Time) ([]models.InteractionEvent, error) {
	tx := s.db.WithContext(ctx).Where("task_id = ?", taskID)
	if kind != "" {
		tx = tx.Where("kind = ?", kind)
	}
	if !since.IsZero() {
		tx = tx.Where("timestamp >= ?", since)
	}

	var out []models.InteractionEvent
	if err := tx.Order("timestamp DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("events by task %d: %w", taskID, err)
	}
	return out, nil
}

// EngagementsSince returns distinct (task, user) pairs for the given kinds.
func (s *Store) EngagementsSince(ctx context.Context, since time.Time, kinds []models.EventKind) ([]store.Engagement, error) {
	tx := s.db.WithContext(ctx).Model(&models.InteractionEvent{}).
		Distinct("task_id", "user_id")
	if !since.IsZero() {
		tx = tx.Where("timestamp >= ?", since)
	}
	if len(kinds) > 0 {
		tx = tx.Where("kind IN ?", kinds)
	}

	var out []store.Engagement
	if err := tx.Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("engagements since %s: %w", since, err)
	}
	return out, nil
}

// EventsOlderThan returns non-anonymized events older than the cutoff.
func (s *Store) EventsOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.InteractionEvent, error) {
	tx := s.db.WithContext(ctx).
		Where("anonymized = ? AND timestamp < ?", false, cutoff).
		Order("timestamp ASC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var out []models.InteractionEvent
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("events older than %s: %w", cutoff, err)
	}
	return out, nil
}

// Anonymize rewrites an event's device and metadata in place.
func (s *Store) Anonymize(ctx context.Context, id int64, device string, md models.Metadata) error {
	res := s.db.WithContext(ctx).Model(&models.InteractionEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"device_type": device,
			"metadata":    md,
			"anonymized":  true,
		})
	if res.Error != nil {
		return fmt.Errorf("anonymize event %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
