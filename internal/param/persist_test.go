// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/paramstore/internal/nvs"
	"github.com/jeranaias/paramstore/internal/nvs/nvstest"
	"github.com/jeranaias/paramstore/internal/scheduler"
)

// =============================================================================
// INIT TESTS
// =============================================================================

func TestInit_IsDefaultMatchesValue(t *testing.T) {
	flash := nvs.NewMemFlash()
	flash.Put(DefaultNamespace, "Counter", []byte{7})
	flash.Put(DefaultNamespace, "IntArray", encodeElems([]int32{1, 2, 3, 4}, 4))
	flash.Put(DefaultNamespace, "Offset", []byte{1, 2, 3}) // wrong size

	c, _ := newController(t, flash)

	for _, info := range c.Descriptors() {
		require.Equal(t, info.Value == info.Default, info.IsDefault, info.Name)
	}

	require.Equal(t, uint8(7), counter.Get(c))
	require.Equal(t, StateCleanCustom, counter.State(c))
	require.Equal(t, StateCleanDefault, intArray.State(c))
	require.Equal(t, StateDirtyDefault, offset.State(c))
	require.Equal(t, StateDirtyDefault, greeting.State(c))
}

func TestInit_Twice(t *testing.T) {
	c, _ := newController(t, nvs.NewMemFlash())
	require.ErrorIs(t, c.Init(context.Background()), ErrAlreadyInitialized)
}

func TestInit_EraseAndRetry(t *testing.T) {
	for _, cause := range []error{nvs.ErrNoFreePages, nvs.ErrNewVersionFound, nvs.ErrCorruptLayout} {
		t.Run(cause.Error(), func(t *testing.T) {
			flash := nvstest.Wrap(nvs.NewMemFlash())
			flash.FailInit(cause)

			c, _ := newController(t, flash)
			require.Equal(t, 1, flash.Erases())
			require.Equal(t, 2, flash.Inits())
			require.Equal(t, uint8(0), counter.Get(c))
		})
	}
}

func TestInit_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*nvstest.FaultyFlash, *scheduler.Manual)
	}{
		{
			name: "erase does not help",
			setup: func(f *nvstest.FaultyFlash, _ *scheduler.Manual) {
				f.FailInit(nvs.ErrNoFreePages, nvs.ErrNoFreePages)
			},
		},
		{
			name: "store unavailable",
			setup: func(f *nvstest.FaultyFlash, _ *scheduler.Manual) {
				f.FailInit(errors.New("flash not responding"))
			},
		},
		{
			name: "namespace cannot be opened",
			setup: func(f *nvstest.FaultyFlash, _ *scheduler.Manual) {
				f.FailOpen(errors.New("handle table full"))
			},
		},
		{
			name: "save job cannot be scheduled",
			setup: func(_ *nvstest.FaultyFlash, s *scheduler.Manual) {
				s.FailNext(errors.New("no timers left"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flash := nvstest.Wrap(nvs.NewMemFlash())
			sched := scheduler.NewManual()
			tt.setup(flash, sched)

			c, err := New(testSchema, flash, sched, WithLogger(quietLogger()))
			require.NoError(t, err)
			require.ErrorIs(t, c.Init(context.Background()), ErrInitFailure)
		})
	}
}

func TestInit_CanceledContext(t *testing.T) {
	c, err := New(testSchema, nvs.NewMemFlash(), scheduler.NewManual(), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Init(ctx)
	require.ErrorIs(t, err, ErrInitFailure)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInit_LoadsFromFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	seed := nvs.NewFileFlash(path, quietLogger())
	require.NoError(t, seed.Init())
	h, err := seed.Open(DefaultNamespace)
	require.NoError(t, err)
	require.NoError(t, h.SetBlob("Counter", []byte{9}))
	require.NoError(t, h.Commit())
	require.NoError(t, h.Close())

	c, _ := newController(t, nvs.NewFileFlash(path, quietLogger()))
	require.Equal(t, uint8(9), counter.Get(c))
	require.False(t, counter.Dirty(c))
}

func TestInit_SchedulesSaveJob(t *testing.T) {
	flash := nvs.NewMemFlash()
	c, sched := newController(t, flash)

	interval, ok := sched.Interval(SaveJobName)
	require.True(t, ok)
	require.Equal(t, DefaultSaveInterval, interval)

	require.NoError(t, counter.Set(c, 4))
	sched.Tick()
	require.Equal(t, 0, c.DirtyCount())
	require.Equal(t, []byte{4}, flash.Blobs(DefaultNamespace)["Counter"])
}

// =============================================================================
// ROUND TRIP TESTS
// =============================================================================

func TestRoundTrip_Restart(t *testing.T) {
	backends := map[string]func(t *testing.T) func() nvs.Flash{
		"memory": func(t *testing.T) func() nvs.Flash {
			m := nvs.NewMemFlash()
			return func() nvs.Flash { return m }
		},
		"sqlite": func(t *testing.T) func() nvs.Flash {
			path := filepath.Join(t.TempDir(), "params.db")
			return func() nvs.Flash {
				f := nvs.NewSQLiteFlash(path, nvs.WithSQLiteLogger(quietLogger()))
				t.Cleanup(func() { f.Close() })
				return f
			}
		},
		"file": func(t *testing.T) func() nvs.Flash {
			path := filepath.Join(t.TempDir(), "params.json")
			return func() nvs.Flash { return nvs.NewFileFlash(path, quietLogger()) }
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			flashFor := open(t)

			first, _ := newController(t, flashFor())
			require.NoError(t, counter.Set(first, 5))
			require.NoError(t, intArray.Set(first, []int32{99, 88, 77, 66}))
			require.NoError(t, greeting.Set(first, "bonjour"))
			require.NoError(t, ratio.Set(first, 1.75))
			require.Greater(t, first.SaveDirty(), 0)
			require.NoError(t, first.Close(context.Background()))

			second, _ := newController(t, flashFor())
			require.Equal(t, uint8(5), counter.Get(second))
			require.Equal(t, []int32{99, 88, 77, 66}, intArray.Get(second))
			require.Equal(t, "bonjour", greeting.Get(second))
			require.Equal(t, float32(1.75), ratio.Get(second))
			require.Equal(t, 0, second.DirtyCount())
			require.False(t, counter.IsDefault(second))
		})
	}
}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestSaveDirty_ContinuesPastFailingKey(t *testing.T) {
	flash := nvstest.Wrap(nvs.NewMemFlash())
	c, _ := newController(t, flash)
	flash.FailSet("Counter", errors.New("write error"))

	saved := c.SaveDirty()
	require.Equal(t, testSchema.Len()-1, saved)
	require.True(t, counter.Dirty(c))
	require.False(t, intArray.Dirty(c))
	require.Equal(t, 1, flash.Commits())

	flash.FailSet("Counter", nil)
	require.Equal(t, 1, c.SaveDirty())
	require.Equal(t, 0, c.DirtyCount())
}

func TestSaveDirty_FailedCommitKeepsFlagsCleared(t *testing.T) {
	mem := nvs.NewMemFlash()
	flash := nvstest.Wrap(mem)
	c, _ := newController(t, flash)
	flash.FailCommit(errors.New("commit failed"))

	require.Equal(t, testSchema.Len(), c.SaveDirty())
	require.Equal(t, 0, c.DirtyCount())
	require.Empty(t, mem.Blobs(DefaultNamespace))
}

func TestSaveDirty_OpenFailureChangesNothing(t *testing.T) {
	flash := nvstest.Wrap(nvs.NewMemFlash())
	c, _ := newController(t, flash)
	flash.FailOpen(errors.New("busy"))

	require.Equal(t, 0, c.SaveDirty())
	require.Equal(t, testSchema.Len(), c.DirtyCount())
	require.Equal(t, 0, flash.Commits())
}

func TestSaveDirty_NothingDirtySkipsCommit(t *testing.T) {
	flash := nvstest.Wrap(nvs.NewMemFlash())
	c, _ := newController(t, flash)
	c.SaveDirty()
	commits := flash.Commits()

	require.Equal(t, 0, c.SaveDirty())
	require.Equal(t, commits, flash.Commits())
}

// =============================================================================
// CLOSE TESTS
// =============================================================================

func TestClose_FlushesAndStopsJob(t *testing.T) {
	flash := nvs.NewMemFlash()
	c, sched := newController(t, flash, WithFlushOnClose(true))
	require.NoError(t, counter.Set(c, 12))

	require.NoError(t, c.Close(context.Background()))
	require.Equal(t, []byte{12}, flash.Blobs(DefaultNamespace)["Counter"])
	_, ok := sched.Interval(SaveJobName)
	require.False(t, ok)

	// Closing twice is harmless, and Init may run again
	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Init(context.Background()))
}

func TestClose_WithoutFlush(t *testing.T) {
	flash := nvs.NewMemFlash()
	c, _ := newController(t, flash)
	require.NoError(t, counter.Set(c, 12))

	require.NoError(t, c.Close(context.Background()))
	require.Empty(t, flash.Blobs(DefaultNamespace))
}

func TestClose_ReportsUnsavedParameters(t *testing.T) {
	flash := nvstest.Wrap(nvs.NewMemFlash())
	c, _ := newController(t, flash, WithFlushOnClose(true))
	flash.FailSet("Greeting", errors.New("sector worn out"))

	err := c.Close(context.Background())
	require.ErrorIs(t, err, ErrStorageFailure)
}

func TestClose_WithRunner(t *testing.T) {
	runner := scheduler.NewRunner()
	defer runner.Stop()

	flash := nvs.NewMemFlash()
	c, err := New(testSchema, flash, runner,
		WithLogger(quietLogger()),
		WithInitialTier(0),
		WithSaveInterval(5*time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))

	require.Eventually(t, func() bool { return c.DirtyCount() == 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, counter.Set(c, 77))
	require.Eventually(t, func() bool {
		return bytes.Equal(flash.Blobs(DefaultNamespace)["Counter"], []byte{77})
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))
	require.Empty(t, runner.Jobs())
}

// =============================================================================
// LOCKING TESTS
// =============================================================================

// TestSaveDirty_CoarseLock checks that concurrent writers and save passes
// never leave a parameter marked clean while its value differs from what was
// committed. Run with -race.
func TestSaveDirty_CoarseLock(t *testing.T) {
	flash := nvs.NewMemFlash()
	c, _ := newController(t, flash)

	const writers = 8
	const iterations = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < iterations; i++ {
				v := int32(rng.Intn(1000))
				_ = counter.Set(c, uint8(v))
				_ = intArray.Set(c, []int32{v, v + 1, v + 2, v + 3})
				_ = greeting.Set(c, "w")
				_ = greeting.Reset(c)
			}
		}(int64(w))
	}

	var saver sync.WaitGroup
	saver.Add(1)
	go func() {
		defer saver.Done()
		for {
			select {
			case <-stop:
				return
			default:
				c.SaveDirty()
			}
		}
	}()

	wg.Wait()
	close(stop)
	saver.Wait()

	blobs := flash.Blobs(DefaultNamespace)
	c.mu.Lock()
	for _, d := range c.descs {
		if d.dirty {
			continue
		}
		require.Equal(t, d.value, blobs[d.def.Name], "%s is clean but differs from storage", d.def.Name)
	}
	c.mu.Unlock()

	c.SaveDirty()
	require.Equal(t, 0, c.DirtyCount())
}
