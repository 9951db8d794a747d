// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nvs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// MaxKeyLen is the longest key or namespace name accepted by a partition.
	MaxKeyLen = 15

	// LayoutVersion is the on-disk layout version written by this package.
	// A partition reporting a newer version must be erased before use.
	LayoutVersion = 1
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound        = errors.New("nvs: key not found")
	ErrNotInitialized  = errors.New("nvs: partition not initialized")
	ErrNoFreePages     = errors.New("nvs: partition has no free pages")
	ErrNewVersionFound = errors.New("nvs: partition written by a newer layout version")
	ErrCorruptLayout   = errors.New("nvs: partition layout is corrupt")
	ErrCorruptBlob     = errors.New("nvs: blob checksum mismatch")
	ErrInvalidName     = errors.New("nvs: invalid key or namespace name")
	ErrHandleClosed    = errors.New("nvs: handle is closed")
)

// NeedsErase reports whether err means the partition layout is unusable and
// the partition should be erased and initialized again.
func NeedsErase(err error) bool {
	return errors.Is(err, ErrNoFreePages) ||
		errors.Is(err, ErrNewVersionFound) ||
		errors.Is(err, ErrCorruptLayout)
}

// =============================================================================
// INTERFACES
// =============================================================================

// Flash is a persistent partition holding blobs grouped by namespace.
type Flash interface {
	// Init prepares the partition for use. It returns an error satisfying
	// NeedsErase when the stored layout cannot be used as is.
	Init() error

	// Erase wipes the partition. Init must be called again afterwards.
	Erase() error

	// Open returns a read-write handle on the namespace.
	Open(namespace string) (Handle, error)
}

// Handle is an open namespace. Writes are staged on the handle and become
// durable on Commit; Close discards anything not yet committed.
type Handle interface {
	// GetBlob returns a copy of the blob stored under key, or ErrNotFound.
	GetBlob(key string) ([]byte, error)

	// SetBlob stages data under key.
	SetBlob(key string, data []byte) error

	// Commit makes every staged write durable.
	Commit() error

	// Close releases the handle.
	Close() error
}

// =============================================================================
// HELPERS
// =============================================================================

// ValidateName checks a key or namespace name against partition limits.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > MaxKeyLen {
		return fmt.Errorf("%w: %q is %d bytes, limit is %d", ErrInvalidName, name, len(name), MaxKeyLen)
	}
	return nil
}

// Checksum returns the integrity checksum stored alongside each blob.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// staged holds the uncommitted writes of a handle.
type staged map[string][]byte

func (s staged) put(key string, data []byte) {
	s[key] = append([]byte(nil), data...)
}

func (s staged) get(key string) ([]byte, bool) {
	data, ok := s[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// keys returns the staged keys in a stable order.
func (s staged) keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
