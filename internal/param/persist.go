// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/paramstore/internal/nvs"
)

// =============================================================================
// INIT
// =============================================================================

// Init loads every parameter from the blob store and schedules the periodic
// save job.
//
// A partition whose layout is unusable is erased and initialized once more.
// A parameter that is missing, unreadable or of the wrong size falls back to
// its default and is marked dirty so the next save writes it. Only a store
// that cannot be initialized or opened, or a save job that cannot be
// scheduled, fails Init; the error wraps ErrInitFailure.
func (c *Controller) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInitFailure, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return ErrAlreadyInitialized
	}

	if err := c.initFlash(); err != nil {
		c.logger.Error("failed to initialize blob store", "error", err)
		return fmt.Errorf("%w: %w", ErrInitFailure, err)
	}

	h, err := c.flash.Open(c.namespace)
	if err != nil {
		c.logger.Error("failed to open namespace", "namespace", c.namespace, "error", err)
		return fmt.Errorf("%w: open namespace %q: %w", ErrInitFailure, c.namespace, err)
	}
	for _, d := range c.descs {
		c.load(h, d)
	}
	if err := h.Close(); err != nil {
		c.logger.Warn("failed to close namespace", "namespace", c.namespace, "error", err)
	}

	job, err := c.sched.SchedulePeriodic(SaveJobName, c.interval, func() { c.SaveDirty() })
	if err != nil {
		c.logger.Error("failed to schedule periodic save", "job", SaveJobName, "error", err)
		return fmt.Errorf("%w: schedule %s: %w", ErrInitFailure, SaveJobName, err)
	}
	c.job = job
	c.initialized = true

	c.logger.Info("parameters loaded",
		"namespace", c.namespace,
		"params", len(c.descs),
		"dirty", c.dirtyLocked(),
		"save_interval", c.interval,
	)
	return nil
}

// initFlash initializes the partition, erasing it once when its layout
// cannot be used.
func (c *Controller) initFlash() error {
	err := c.flash.Init()
	if err == nil || !nvs.NeedsErase(err) {
		return err
	}

	c.logger.Warn("blob store layout unusable, erasing", "error", err)
	if err := c.flash.Erase(); err != nil {
		return fmt.Errorf("erase: %w", err)
	}
	return c.flash.Init()
}

// load reads one descriptor from h. Caller holds c.mu.
func (c *Controller) load(h nvs.Handle, d *descriptor) {
	name := d.def.Name
	data, err := h.GetBlob(name)
	switch {
	case errors.Is(err, nvs.ErrNotFound):
		c.logger.Debug("parameter not stored, using default", "param", name)
	case err != nil:
		c.logger.Warn("failed to load parameter, using default", "param", name, "error", err)
	case len(data) != len(d.value):
		c.logger.Warn("stored parameter has wrong size, using default",
			"param", name, "size", len(data), "want", len(d.value))
	default:
		d.value = data
		d.dirty = false
		d.refresh()
		return
	}
	d.restoreDefault()
	d.dirty = true
}

// =============================================================================
// SAVE
// =============================================================================

// SaveDirty writes every dirty parameter to the blob store and commits the
// batch. It returns how many parameters were written.
//
// Failures are logged and never returned: a parameter whose write fails
// stays dirty and is retried on the next pass. A failed commit does not
// mark the written parameters dirty again.
func (c *Controller) SaveDirty() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Controller) saveLocked() int {
	h, err := c.flash.Open(c.namespace)
	if err != nil {
		c.storageError("failed to open namespace", err, "namespace", c.namespace)
		return 0
	}
	defer func() {
		if err := h.Close(); err != nil {
			c.logger.Warn("failed to close namespace", "namespace", c.namespace, "error", err)
		}
	}()

	saved := 0
	for _, d := range c.descs {
		if !d.dirty {
			continue
		}
		c.logger.Debug("saving parameter",
			"param", d.def.Name,
			"size", len(d.value),
			"elements", d.def.Len(),
			"element_size", d.def.Kind.Size(),
		)
		if err := h.SetBlob(d.def.Name, d.value); err != nil {
			c.storageError("failed to save parameter", err, "param", d.def.Name)
			continue
		}
		d.dirty = false
		saved++
	}

	if saved == 0 {
		return 0
	}
	if err := h.Commit(); err != nil {
		c.storageError("failed to commit dirty parameters", err, "count", saved)
		return saved
	}
	c.logger.Info("dirty parameters committed", "count", saved)
	return saved
}

// storageError logs a blob store failure, throttled so a dead store does not
// flood the log.
func (c *Controller) storageError(msg string, err error, args ...any) {
	c.errLog.Do(func() {
		c.logger.Error(msg, append(args, "error", fmt.Errorf("%w: %w", ErrStorageFailure, err))...)
	})
}

// =============================================================================
// CLOSE
// =============================================================================

// Close stops the periodic save job, waiting for a save in progress, and
// runs a final save when the controller was built WithFlushOnClose. It
// returns an error wrapping ErrStorageFailure if parameters remain unsaved
// after that final save. Close on a controller that is not initialized does
// nothing.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return nil
	}
	job := c.job
	c.job = nil
	c.initialized = false
	c.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		job.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s to stop: %w", SaveJobName, ctx.Err())
	}

	if !c.flushOnClose {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveLocked()
	if n := c.dirtyLocked(); n > 0 {
		return fmt.Errorf("%w: %d parameters not saved", ErrStorageFailure, n)
	}
	return nil
}
