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

// GetUser returns a user by id or store.ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Take(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// GetPreferences returns the user's preferences record or store.ErrNotFound.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	var p models.UserPreferences
	err := s.db.WithContext(ctx).Take(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences %s: %w", userID, err)
	}
	return &p, nil
}

// UpsertLearned replaces only the learned overlay, creating the record if
// absent. Declared preference lists are left untouched.
func (s *Store) UpsertLearned(ctx context.Context, userID string, overlay models.WeightedFields) error {
	rec := models.UserPreferences{
		UserID:    userID,
		Learned:   overlay,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"learned", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert learned overlay %s: %w", userID, err)
	}
	return nil
}

// HistoryByUser returns the user's audit rows since the cutoff.
func (s *Store) HistoryByUser(ctx context.Context, userID string, since time.Time) ([]models.TaskHistory, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		tx = tx.Where("timestamp >= ?", since)
	}

	var out []models.TaskHistory
	if err := tx.Order("timestamp DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("history by user %s: %w", userID, err)
	}
	return out, nil
}

// HistoryTaskIDs returns ids of tasks where the user appears with one of
// the given actions.
func (s *Store) HistoryTaskIDs(ctx context.Context, userID string, actions []models.HistoryAction) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&models.TaskHistory{}).
		Where("user_id = ? AND action IN ?", userID, actions).
		Distinct().Pluck("task_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("history task ids for %s: %w", userID, err)
	}
	return ids, nil
}

// AppendFeedback persists a recommendation outcome row.
func (s *Store) AppendFeedback(ctx context.Context, fb *models.RecommendationFeedback) error {
	if err := s.db.WithContext(ctx).Create(fb).Error; err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

// FeedbackSince returns feedback rows newer than the cutoff.
func (s *Store) FeedbackSince(ctx context.Context, since time.Time) ([]models.RecommendationFeedback, error) {
	tx := s.db.WithContext(ctx)
	if !since.IsZero() {
		tx = tx.Where("created_at >= ?", since)
	}

	var out []models.RecommendationFeedback
	if err := tx.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("feedback since %s: %w", since, err)
	}
	return out, nil
}

// LoadRankingConfig returns the persisted ranking record.
func (s *Store) LoadRankingConfig(ctx context.Context) (*models.RankingConfig, error) {
	var rc models.RankingConfig
	err := s.db.WithContext(ctx).Order("id ASC").Take(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load ranking config: %w", err)
	}
	return &rc, nil
}

// SaveRankingConfig replaces the singleton ranking record.
func (s *Store) SaveRankingConfig(ctx context.Context, rc *models.RankingConfig) error {
	rc.ID = 1
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"weights", "diversity_threshold", "version", "updated_at",
		}),
	}).Create(rc).Error
	if err != nil {
		return fmt.Errorf("save ranking config: %w", err)
	}
	return nil
}
