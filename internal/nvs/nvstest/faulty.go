// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nvstest provides fault injection helpers for code built on nvs.
package nvstest

import (
	"sync"

	"github.com/jeranaias/paramstore/internal/nvs"
)

// FaultyFlash wraps a Flash and fails selected operations on demand.
type FaultyFlash struct {
	inner nvs.Flash

	mu        sync.Mutex
	initErrs  []error
	openErr   error
	setErrs   map[string]error
	commitErr error

	// Counters, read through the accessor methods.
	inits   int
	erases  int
	opens   int
	commits int
	sets    map[string]int
}

// Wrap returns a FaultyFlash around inner. With no faults configured it
// behaves exactly like inner.
func Wrap(inner nvs.Flash) *FaultyFlash {
	return &FaultyFlash{
		inner:   inner,
		setErrs: make(map[string]error),
		sets:    make(map[string]int),
	}
}

// FailInit makes the next len(errs) Init calls return errs in order.
func (f *FaultyFlash) FailInit(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initErrs = append(f.initErrs, errs...)
}

// FailOpen makes every Open fail with err until cleared with nil.
func (f *FaultyFlash) FailOpen(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr = err
}

// FailSet makes SetBlob on key fail with err until cleared with nil.
func (f *FaultyFlash) FailSet(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.setErrs, key)
		return
	}
	f.setErrs[key] = err
}

// FailCommit makes every Commit fail with err until cleared with nil.
func (f *FaultyFlash) FailCommit(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitErr = err
}

func (f *FaultyFlash) Init() error {
	f.mu.Lock()
	f.inits++
	if len(f.initErrs) > 0 {
		err := f.initErrs[0]
		f.initErrs = f.initErrs[1:]
		f.mu.Unlock()
		if err != nil {
			return err
		}
		return f.inner.Init()
	}
	f.mu.Unlock()
	return f.inner.Init()
}

func (f *FaultyFlash) Erase() error {
	f.mu.Lock()
	f.erases++
	f.mu.Unlock()
	return f.inner.Erase()
}

func (f *FaultyFlash) Open(namespace string) (nvs.Handle, error) {
	f.mu.Lock()
	f.opens++
	err := f.openErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	h, err := f.inner.Open(namespace)
	if err != nil {
		return nil, err
	}
	return &faultyHandle{flash: f, inner: h}, nil
}

// Inits returns the number of Init calls.
func (f *FaultyFlash) Inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits
}

// Erases returns the number of Erase calls.
func (f *FaultyFlash) Erases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.erases
}

// Opens returns the number of Open calls, failed ones included.
func (f *FaultyFlash) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// Commits returns the number of Commit calls, failed ones included.
func (f *FaultyFlash) Commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

// Sets returns the number of SetBlob calls on key, failed ones included.
func (f *FaultyFlash) Sets(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets[key]
}

type faultyHandle struct {
	flash *FaultyFlash
	inner nvs.Handle
}

func (h *faultyHandle) GetBlob(key string) ([]byte, error) {
	return h.inner.GetBlob(key)
}

func (h *faultyHandle) SetBlob(key string, data []byte) error {
	h.flash.mu.Lock()
	h.flash.sets[key]++
	err := h.flash.setErrs[key]
	h.flash.mu.Unlock()
	if err != nil {
		return err
	}
	return h.inner.SetBlob(key, data)
}

func (h *faultyHandle) Commit() error {
	h.flash.mu.Lock()
	h.flash.commits++
	err := h.flash.commitErr
	h.flash.mu.Unlock()
	if err != nil {
		return err
	}
	return h.inner.Commit()
}

func (h *faultyHandle) Close() error {
	return h.inner.Close()
}
