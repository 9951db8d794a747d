// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Compile-time interface check.
var _ Scheduler = (*Manual)(nil)

// Manual is a Scheduler whose jobs only run when Tick is called. One-shot
// commands use it so nothing fires in the background, and tests use it to
// drive periodic work deterministically.
type Manual struct {
	mu      sync.Mutex
	jobs    map[string]*manualJob
	failErr error
}

// NewManual creates a manual scheduler with no jobs.
func NewManual() *Manual {
	return &Manual{jobs: make(map[string]*manualJob)}
}

// SchedulePeriodic registers fn. The interval is validated and recorded but
// otherwise ignored.
func (m *Manual) SchedulePeriodic(name string, interval time.Duration, fn func()) (Job, error) {
	if err := checkJob(interval, fn); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		err := m.failErr
		m.failErr = nil
		return nil, err
	}
	if _, exists := m.jobs[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	job := &manualJob{manual: m, name: name, interval: interval, fn: fn}
	m.jobs[name] = job
	return job, nil
}

// FailNext makes the next SchedulePeriodic call return err.
func (m *Manual) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Tick runs every active job once, in name order, and returns how many ran.
func (m *Manual) Tick() int {
	m.mu.Lock()
	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	jobs := make([]*manualJob, 0, len(names))
	for _, name := range names {
		jobs = append(jobs, m.jobs[name])
	}
	m.mu.Unlock()

	// Callbacks run without the scheduler lock held
	for _, job := range jobs {
		job.fn()
	}
	return len(jobs)
}

// Interval returns the interval a job was scheduled with and whether the job
// is active.
func (m *Manual) Interval(name string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return 0, false
	}
	return job.interval, true
}

type manualJob struct {
	manual   *Manual
	name     string
	interval time.Duration
	fn       func()
}

func (j *manualJob) Stop() {
	j.manual.mu.Lock()
	defer j.manual.mu.Unlock()
	if j.manual.jobs[j.name] == j {
		delete(j.manual.jobs, j.name)
	}
}
