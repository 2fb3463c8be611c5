// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package behavior

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmarket/taskfeed/internal/store"
)

// AnonymizerOptions tunes the sweep. Zero values take defaults.
type AnonymizerOptions struct {
	// Horizon is the event age beyond which details are scrubbed.
	Horizon time.Duration
	// Interval is the wall time between sweeps.
	Interval time.Duration
	// BatchSize bounds rows rewritten per store round trip.
	BatchSize int
}

// Anonymizer periodically rewrites old interaction events in place:
// device details are bucketed to coarse classes and metadata is
// dropped. Timestamps are kept and rows are never deleted, so the
// collaborative and popularity signals survive the scrub.
type Anonymizer struct {
	behavior store.BehaviorWriter
	opts     AnonymizerOptions
	logger   zerolog.Logger
}

// NewAnonymizer creates the sweep service.
func NewAnonymizer(behavior store.BehaviorWriter, opts AnonymizerOptions, logger zerolog.Logger) *Anonymizer {
	if opts.Horizon <= 0 {
		opts.Horizon = 90 * 24 * time.Hour
	}
	if opts.Interval <= 0 {
		opts.Interval = 6 * time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	return &Anonymizer{
		behavior: behavior,
		opts:     opts,
		logger:   logger.With().Str("service", "anonymizer").Logger(),
	}
}

// Serve implements suture.Service.
func (a *Anonymizer) Serve(ctx context.Context) error {
	a.logger.Info().
		Dur("horizon", a.opts.Horizon).
		Dur("interval", a.opts.Interval).
		Msg("anonymizer running")

	ticker := time.NewTicker(a.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("anonymizer shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Sweep(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Sweep scrubs every event older than the horizon, batch by batch.
func (a *Anonymizer) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-a.opts.Horizon)
	total := 0

	for {
		events, err := a.behavior.EventsOlderThan(ctx, cutoff, a.opts.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			break
		}
		for _, ev := range events {
			if err := a.behavior.Anonymize(ctx, ev.ID, bucketDevice(ev.DeviceType), nil); err != nil {
				a.logger.Warn().Err(err).Int64("event_id", ev.ID).Msg("anonymize failed")
				continue
			}
			total++
		}
		if len(events) < a.opts.BatchSize {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if total > 0 {
		a.logger.Info().Int("events", total).Msg("sweep complete")
	}
	return nil
}

// bucketDevice coarsens a free-form device string to one of
// "mobile", "desktop", "other", or empty.
func bucketDevice(device string) string {
	if device == "" {
		return ""
	}
	d := strings.ToLower(device)
	switch {
	case strings.Contains(d, "ios"),
		strings.Contains(d, "android"),
		strings.Contains(d, "iphone"),
		strings.Contains(d, "ipad"),
		strings.Contains(d, "mobile"),
		strings.Contains(d, "tablet"),
		strings.Contains(d, "phone"):
		return "mobile"
	case strings.Contains(d, "windows"),
		strings.Contains(d, "mac"),
		strings.Contains(d, "linux"),
		strings.Contains(d, "desktop"):
		return "desktop"
	default:
		return "other"
	}
}

// String returns the service name for supervisor logging.
func (a *Anonymizer) String() string { return "anonymizer" }
