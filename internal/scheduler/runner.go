// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Compile-time interface check.
var _ Scheduler = (*Runner)(nil)

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes periodic jobs, each on its own ticker goroutine.
type Runner struct {
	mu      sync.Mutex
	jobs    map[string]*tickerJob
	wg      sync.WaitGroup
	stopped atomic.Bool // Flag to prevent new jobs after Stop() is called
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for job lifecycle and panic reports.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner with no jobs.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		jobs:   make(map[string]*tickerJob),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SchedulePeriodic starts a job calling fn every interval. The first call
// happens one interval after scheduling.
func (r *Runner) SchedulePeriodic(name string, interval time.Duration, fn func()) (Job, error) {
	if err := checkJob(interval, fn); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped.Load() {
		return nil, ErrStopped
	}
	if _, exists := r.jobs[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	job := &tickerJob{
		runner:   r,
		name:     name,
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.jobs[name] = job
	r.wg.Add(1)
	go job.loop()

	r.logger.Debug("job scheduled", "job", name, "interval", interval)
	return job, nil
}

// Jobs returns the names of the active jobs, sorted.
func (r *Runner) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stop stops every job and waits for them to exit. No new jobs can be
// scheduled afterwards.
func (r *Runner) Stop() {
	if r.stopped.Swap(true) {
		return
	}

	r.mu.Lock()
	jobs := make([]*tickerJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.Unlock()

	for _, job := range jobs {
		job.Stop()
	}
	r.wg.Wait()
}

func (r *Runner) remove(name string, job *tickerJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobs[name] == job {
		delete(r.jobs, name)
	}
}

// =============================================================================
// TICKER JOB
// =============================================================================

type tickerJob struct {
	runner   *Runner
	name     string
	interval time.Duration
	fn       func()
	runs     atomic.Int64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Runs returns how many times the callback has completed.
func (j *tickerJob) Runs() int64 {
	return j.runs.Load()
}

func (j *tickerJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.stop)
		<-j.done
		j.runner.remove(j.name, j)
		j.runner.logger.Debug("job stopped", "job", j.name, "runs", j.runs.Load())
	})
}

func (j *tickerJob) loop() {
	defer j.runner.wg.Done()
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			// Prefer stopping over a tick that raced with Stop()
			select {
			case <-j.stop:
				return
			default:
			}
			j.invoke()
		}
	}
}

// invoke runs the callback once, containing panics so one bad tick does not
// kill the job.
func (j *tickerJob) invoke() {
	defer func() {
		if rec := recover(); rec != nil {
			j.runner.logger.Error("job panicked", "job", j.name, "panic", rec)
		}
	}()
	j.fn()
	j.runs.Add(1)
}
