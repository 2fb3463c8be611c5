// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package postgres implements the store contracts on PostgreSQL via GORM.
package postgres

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openmarket/taskfeed/internal/config"
	"github.com/openmarket/taskfeed/internal/models"
	"github.com/openmarket/taskfeed/internal/store"
)

// Store holds the GORM connection shared by all contract implementations.
type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL, tunes the pool, and migrates the tables the
// core owns. Task, user, application, participant, and history tables are
// owned by external subsystems; migration creates them only if absent so
// standalone deployments work.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskParticipant{},
		&models.TaskApplication{},
		&models.TaskHistory{},
		&models.UserPreferences{},
		&models.InteractionEvent{},
		&models.RecommendationFeedback{},
		&models.RankingConfig{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing GORM handle. Used by tests with sqlite.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Stores returns a store.Stores bundle backed by this connection.
func (s *Store) Stores() store.Stores {
	return store.Stores{
		Tasks:    s,
		Users:    s,
		Prefs:    s,
		Behavior: s,
		History:  s,
		Feedback: s,
		Config:   s,
	}
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
