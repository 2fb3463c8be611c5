// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8470 {
		t.Errorf("Server.Port = %d, want 8470", cfg.Server.Port)
	}
	if cfg.Recommend.HardMaxLimit != 50 {
		t.Errorf("HardMaxLimit = %d, want 50", cfg.Recommend.HardMaxLimit)
	}
	if cfg.Behavior.AnonymizeHorizon != 90*24*time.Hour {
		t.Errorf("AnonymizeHorizon = %v, want 90d", cfg.Behavior.AnonymizeHorizon)
	}
	if !cfg.Optimizer.Enabled {
		t.Error("Optimizer.Enabled = false, want true")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
server:
  port: 9000
recommend:
  diversity_threshold: 0.6
cache:
  backend: memory
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Recommend.DiversityThreshold != 0.6 {
		t.Errorf("DiversityThreshold = %f, want 0.6", cfg.Recommend.DiversityThreshold)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("Cache.Backend = %q, want memory", cfg.Cache.Backend)
	}
	// Untouched keys keep defaults.
	if cfg.Recommend.MinCandidates != 200 {
		t.Errorf("MinCandidates = %d, want 200", cfg.Recommend.MinCandidates)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("TASKFEED_SERVER_PORT", "9100")
	t.Setenv("TASKFEED_DATABASE_DSN", "postgres://localhost/taskfeed")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Database.DSN != "postgres://localhost/taskfeed" {
		t.Errorf("Database.DSN = %q", cfg.Database.DSN)
	}
}

func TestEnvTransform(t *testing.T) {
	cases := []struct{ in, want string }{
		{"TASKFEED_SERVER_PORT", "server.port"},
		{"TASKFEED_RECOMMEND_DIVERSITY_THRESHOLD", "recommend.diversity_threshold"},
		{"TASKFEED_RECOMMEND_WEIGHTS__CONTENT", "recommend.weights.content"},
		{"TASKFEED_CACHE_TTLS__USER_VECTOR", "cache.ttls.user_vector"},
	}
	for _, tc := range cases {
		if got := envTransform(tc.in); got != tc.want {
			t.Errorf("envTransform(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"negative weight", func(c *Config) { c.Recommend.Weights.Content = -0.1 }},
		{"all-zero weights", func(c *Config) { c.Recommend.Weights = WeightsConfig{} }},
		{"diversity above one", func(c *Config) { c.Recommend.DiversityThreshold = 1.5 }},
		{"zero queue depth", func(c *Config) { c.Behavior.RefreshQueueDepth = 0 }},
		{"max step above one", func(c *Config) { c.Optimizer.MaxStep = 2 }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate passed, want error")
			}
		})
	}
}
