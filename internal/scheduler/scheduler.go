// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"errors"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrStopped         = errors.New("scheduler: stopped")
	ErrInvalidInterval = errors.New("scheduler: interval must be positive")
	ErrDuplicateJob    = errors.New("scheduler: job already scheduled")
	ErrNoCallback      = errors.New("scheduler: callback is nil")
)

// =============================================================================
// INTERFACES
// =============================================================================

// Scheduler invokes callbacks on a fixed cadence.
type Scheduler interface {
	// SchedulePeriodic calls fn every interval until the returned Job is
	// stopped. Names are unique per scheduler.
	SchedulePeriodic(name string, interval time.Duration, fn func()) (Job, error)
}

// Job is a scheduled callback.
type Job interface {
	// Stop cancels the job and waits for an in-flight call to return.
	// Calling Stop more than once is a no-op.
	Stop()
}

func checkJob(interval time.Duration, fn func()) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	if fn == nil {
		return ErrNoCallback
	}
	return nil
}
