// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunner_RunsPeriodically(t *testing.T) {
	r := NewRunner()
	defer r.Stop()

	var calls atomic.Int32
	job, err := r.SchedulePeriodic("tick", 5*time.Millisecond, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("SchedulePeriodic failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if calls.Load() < 3 {
		t.Fatalf("Expected at least 3 calls, got %d", calls.Load())
	}

	job.Stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("Job kept running after Stop: %d -> %d", after, calls.Load())
	}
	if len(r.Jobs()) != 0 {
		t.Errorf("Stopped job still listed: %v", r.Jobs())
	}
}

func TestRunner_StopWaitsForInFlightCall(t *testing.T) {
	r := NewRunner()
	defer r.Stop()

	started := make(chan struct{})
	var finished atomic.Bool
	var once atomic.Bool
	job, err := r.SchedulePeriodic("slow", time.Millisecond, func() {
		if once.Swap(true) {
			return
		}
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})
	if err != nil {
		t.Fatalf("SchedulePeriodic failed: %v", err)
	}

	<-started
	job.Stop()
	if !finished.Load() {
		t.Error("Stop returned before the in-flight call finished")
	}
	job.Stop() // second Stop is a no-op
}

func TestRunner_Validation(t *testing.T) {
	r := NewRunner()
	defer r.Stop()

	if _, err := r.SchedulePeriodic("zero", 0, func() {}); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Expected ErrInvalidInterval, got %v", err)
	}
	if _, err := r.SchedulePeriodic("nil", time.Second, nil); !errors.Is(err, ErrNoCallback) {
		t.Errorf("Expected ErrNoCallback, got %v", err)
	}

	if _, err := r.SchedulePeriodic("job", time.Hour, func() {}); err != nil {
		t.Fatalf("SchedulePeriodic failed: %v", err)
	}
	if _, err := r.SchedulePeriodic("job", time.Hour, func() {}); !errors.Is(err, ErrDuplicateJob) {
		t.Errorf("Expected ErrDuplicateJob, got %v", err)
	}
}

func TestRunner_StopRejectsNewJobs(t *testing.T) {
	r := NewRunner()
	if _, err := r.SchedulePeriodic("a", time.Hour, func() {}); err != nil {
		t.Fatalf("SchedulePeriodic failed: %v", err)
	}
	r.Stop()
	r.Stop()

	if _, err := r.SchedulePeriodic("b", time.Hour, func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if len(r.Jobs()) != 0 {
		t.Errorf("Expected no jobs after Stop, got %v", r.Jobs())
	}
}

func TestRunner_PanicDoesNotKillJob(t *testing.T) {
	r := NewRunner()
	defer r.Stop()

	var calls atomic.Int32
	_, err := r.SchedulePeriodic("flaky", 2*time.Millisecond, func() {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	})
	if err != nil {
		t.Fatalf("SchedulePeriodic failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Error("Job did not survive a panicking call")
	}
}

func TestManual_Tick(t *testing.T) {
	m := NewManual()

	var a, b int
	jobA, err := m.SchedulePeriodic("a", 30*time.Second, func() { a++ })
	if err != nil {
		t.Fatalf("SchedulePeriodic failed: %v", err)
	}
	if _, err := m.SchedulePeriodic("b", time.Second, func() { b++ }); err != nil {
		t.Fatalf("SchedulePeriodic failed: %v", err)
	}

	if n := m.Tick(); n != 2 {
		t.Errorf("Expected 2 jobs to run, got %d", n)
	}
	if interval, ok := m.Interval("a"); !ok || interval != 30*time.Second {
		t.Errorf("Unexpected interval for a: %v %v", interval, ok)
	}

	jobA.Stop()
	m.Tick()
	if a != 1 || b != 2 {
		t.Errorf("Expected a=1 b=2, got a=%d b=%d", a, b)
	}
	if _, ok := m.Interval("a"); ok {
		t.Error("Stopped job still active")
	}
}

func TestManual_FailNext(t *testing.T) {
	m := NewManual()
	boom := errors.New("timer pool exhausted")
	m.FailNext(boom)

	if _, err := m.SchedulePeriodic("a", time.Second, func() {}); !errors.Is(err, boom) {
		t.Errorf("Expected injected error, got %v", err)
	}
	if _, err := m.SchedulePeriodic("a", time.Second, func() {}); err != nil {
		t.Errorf("Failure should apply once, got %v", err)
	}
}
