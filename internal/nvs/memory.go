// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nvs

import (
	"sync"
)

// Compile-time contract assertions.
var (
	_ Flash  = (*MemFlash)(nil)
	_ Handle = (*memHandle)(nil)
)

// =============================================================================
// MEMORY PARTITION
// =============================================================================

// MemFlash is an in-memory partition. Committed data survives Open/Close
// cycles and re-initialization, but not Erase or process exit.
type MemFlash struct {
	mu          sync.Mutex
	initialized bool
	spaces      map[string]map[string][]byte
}

// NewMemFlash creates an empty, uninitialized in-memory partition.
func NewMemFlash() *MemFlash {
	return &MemFlash{spaces: make(map[string]map[string][]byte)}
}

// Init marks the partition ready for use.
func (m *MemFlash) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	return nil
}

// Erase drops every namespace.
func (m *MemFlash) Erase() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces = make(map[string]map[string][]byte)
	m.initialized = false
	return nil
}

// Open returns a handle on namespace.
func (m *MemFlash) Open(namespace string) (Handle, error) {
	if err := ValidateName(namespace); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	return &memHandle{flash: m, namespace: namespace, pending: make(staged)}, nil
}

// Blobs returns a copy of the committed blobs in namespace.
func (m *MemFlash) Blobs(namespace string) map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(m.spaces[namespace]))
	for k, v := range m.spaces[namespace] {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// Put commits a blob directly, bypassing handles. Useful to seed a partition.
func (m *MemFlash) Put(namespace, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	space, ok := m.spaces[namespace]
	if !ok {
		space = make(map[string][]byte)
		m.spaces[namespace] = space
	}
	space[key] = append([]byte(nil), data...)
}

// =============================================================================
// MEMORY HANDLE
// =============================================================================

type memHandle struct {
	flash     *MemFlash
	namespace string
	pending   staged
	closed    bool
}

func (h *memHandle) GetBlob(key string) ([]byte, error) {
	if h.closed {
		return nil, ErrHandleClosed
	}
	if data, ok := h.pending.get(key); ok {
		return data, nil
	}
	h.flash.mu.Lock()
	defer h.flash.mu.Unlock()
	data, ok := h.flash.spaces[h.namespace][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (h *memHandle) SetBlob(key string, data []byte) error {
	if h.closed {
		return ErrHandleClosed
	}
	if err := ValidateName(key); err != nil {
		return err
	}
	h.pending.put(key, data)
	return nil
}

func (h *memHandle) Commit() error {
	if h.closed {
		return ErrHandleClosed
	}
	h.flash.mu.Lock()
	defer h.flash.mu.Unlock()
	if !h.flash.initialized {
		return ErrNotInitialized
	}
	space, ok := h.flash.spaces[h.namespace]
	if !ok {
		space = make(map[string][]byte)
		h.flash.spaces[h.namespace] = space
	}
	for _, key := range h.pending.keys() {
		space[key] = h.pending[key]
	}
	h.pending = make(staged)
	return nil
}

func (h *memHandle) Close() error {
	h.closed = true
	h.pending = nil
	return nil
}
