// Taskfeed - Marketplace Task Recommendation Engine
// Copyright 2026 Taskfeed Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openmarket/taskfeed

package recommend

import "errors"

// Errors surfaced at the facade boundary. Everything else in the
// pipeline degrades internally instead of propagating.
var (
	ErrBadRequest           = errors.New("bad request")
	ErrUnknownUser          = errors.New("unknown user")
	ErrUnknownTask          = errors.New("unknown task")
	ErrUserNotEligible      = errors.New("user not eligible for recommendations")
	ErrTemporaryUnavailable = errors.New("recommendation service temporarily unavailable")
)
