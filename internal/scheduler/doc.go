// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scheduler runs named periodic jobs.
//
// # Key Types
//
//   - Scheduler: anything that can schedule a periodic callback
//   - Job: a scheduled callback that can be stopped
//   - Runner: ticker-driven scheduler, one goroutine per job
//   - Manual: scheduler that only runs jobs when Tick is called
//
// # Usage
//
//	runner := scheduler.NewRunner(scheduler.WithLogger(logger))
//	defer runner.Stop()
//
//	job, err := runner.SchedulePeriodic("g_param_save", 30*time.Second, func() {
//	    ctrl.SaveDirty()
//	})
//	if err != nil {
//	    return err
//	}
//	defer job.Stop()
//
// Stop waits for an in-flight invocation to return, so a job must not stop
// itself from inside its own callback.
package scheduler
