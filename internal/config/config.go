// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

// Package config loads and validates Taskfeed configuration.
//
// Configuration is layered: struct defaults, then an optional YAML file,
// then TASKFEED_-prefixed environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Taskfeed server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Recommend RecommendConfig `koanf:"recommend"`
	Behavior  BehaviorConfig  `koanf:"behavior"`
	Optimizer OptimizerConfig `koanf:"optimizer"`
}

// ServerConfig holds HTTP host-surface settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds store settings. An empty DSN selects the in-memory
// stores (standalone/development mode).
type DatabaseConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int    `koanf:"max_conns"`
}

// CacheConfig holds cache-port settings. Backend "auto" picks redis when an
// address is configured, badger when a directory is configured, memory
// otherwise.
type CacheConfig struct {
	Backend   string `koanf:"backend"`
	RedisAddr string `koanf:"redis_addr"`
	BadgerDir string `koanf:"badger_dir"`

	TTLs TTLConfig `koanf:"ttls"`
}

// TTLConfig holds per-entity-class cache TTLs.
type TTLConfig struct {
	Recommendation time.Duration `koanf:"recommendation"`
	Exclusion      time.Duration `koanf:"exclusion"`
	UserVector     time.Duration `koanf:"user_vector"`
	Popularity     time.Duration `koanf:"popularity"`
	TaskMetadata   time.Duration `koanf:"task_metadata"`
	HotKey         time.Duration `koanf:"hot_key"`
}

// RecommendConfig holds ranking parameters. Weights and the diversity
// threshold are starting values; the offline optimizer re-tunes them at
// runtime through the config snapshot.
type RecommendConfig struct {
	Weights            WeightsConfig `koanf:"weights"`
	DiversityThreshold float64       `koanf:"diversity_threshold"`

	HardMaxLimit       int     `koanf:"hard_max_limit"`
	MinCandidates      int     `koanf:"min_candidates"`
	CandidateFactor    int     `koanf:"candidate_factor"`
	ExclusionSoftBound int     `koanf:"exclusion_soft_bound"`
	ColdThreshold      int     `koanf:"cold_threshold"`
	PopularitySat      float64 `koanf:"popularity_sat"`

	HistoryHorizon  time.Duration `koanf:"history_horizon"`
	DecayHalfLife   time.Duration `koanf:"decay_half_life"`
	PredictTimeout  time.Duration `koanf:"predict_timeout"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// WeightsConfig holds the relative contribution of each scorer.
// Normalized at runtime, so values need not sum to 1.
type WeightsConfig struct {
	Content       float64 `koanf:"content"`
	Collaborative float64 `koanf:"collaborative"`
	Freshness     float64 `koanf:"freshness"`
	Location      float64 `koanf:"location"`
	Popularity    float64 `koanf:"popularity"`
}

// BehaviorConfig holds behavior-tracker settings.
type BehaviorConfig struct {
	AnonymizeHorizon  time.Duration `koanf:"anonymize_horizon"`
	AnonymizeInterval time.Duration `koanf:"anonymize_interval"`
	RefreshQueueDepth int           `koanf:"refresh_queue_depth"`
}

// OptimizerConfig holds the offline optimizer schedule.
type OptimizerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
	Lookback time.Duration `koanf:"lookback"`
	MaxStep  float64       `koanf:"max_step"`
}

// defaultConfig returns a Config with all design defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8470,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			DSN:      "",
			MaxConns: 10,
		},
		Cache: CacheConfig{
			Backend: "auto",
			TTLs: TTLConfig{
				Recommendation: 300 * time.Second,
				Exclusion:      300 * time.Second,
				UserVector:     600 * time.Second,
				Popularity:     3600 * time.Second,
				TaskMetadata:   900 * time.Second,
				HotKey:         30 * 24 * time.Hour,
			},
		},
		Recommend: RecommendConfig{
			Weights: WeightsConfig{
				Content:       0.35,
				Collaborative: 0.25,
				Freshness:     0.15,
				Location:      0.12,
				Popularity:    0.08,
			},
			DiversityThreshold: 0.5,
			HardMaxLimit:       50,
			MinCandidates:      200,
			CandidateFactor:    10,
			ExclusionSoftBound: 1000,
			ColdThreshold:      3,
			PopularitySat:      10,
			HistoryHorizon:     90 * 24 * time.Hour,
			DecayHalfLife:      30 * 24 * time.Hour,
			PredictTimeout:     2 * time.Second,
			BreakerFailures:    5,
			BreakerTimeout:     15 * time.Second,
		},
		Behavior: BehaviorConfig{
			AnonymizeHorizon:  90 * 24 * time.Hour,
			AnonymizeInterval: 6 * time.Hour,
			RefreshQueueDepth: 1024,
		},
		Optimizer: OptimizerConfig{
			Enabled:  true,
			Interval: time.Hour,
			Lookback: 7 * 24 * time.Hour,
			MaxStep:  0.10,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Recommend.HardMaxLimit < 1 {
		return fmt.Errorf("recommend.hard_max_limit must be positive")
	}
	if c.Recommend.DiversityThreshold < 0 || c.Recommend.DiversityThreshold > 1 {
		return fmt.Errorf("recommend.diversity_threshold %f out of [0,1]", c.Recommend.DiversityThreshold)
	}
	w := c.Recommend.Weights
	if w.Content < 0 || w.Collaborative < 0 || w.Freshness < 0 || w.Location < 0 || w.Popularity < 0 {
		return fmt.Errorf("recommend.weights must be non-negative")
	}
	if w.Content+w.Collaborative+w.Freshness+w.Location+w.Popularity <= 0 {
		return fmt.Errorf("recommend.weights must not all be zero")
	}
	if c.Recommend.ExclusionSoftBound < 1 {
		return fmt.Errorf("recommend.exclusion_soft_bound must be positive")
	}
	if c.Behavior.RefreshQueueDepth < 1 {
		return fmt.Errorf("behavior.refresh_queue_depth must be positive")
	}
	if c.Optimizer.MaxStep <= 0 || c.Optimizer.MaxStep > 1 {
		return fmt.Errorf("optimizer.max_step %f out of (0,1]", c.Optimizer.MaxStep)
	}
	switch c.Cache.Backend {
	case "auto", "redis", "badger", "memory":
	default:
		return fmt.Errorf("cache.backend %q unknown", c.Cache.Backend)
	}
	return nil
}
