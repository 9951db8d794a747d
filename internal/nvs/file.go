// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nvs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/paramstore/internal/util"
)

// Compile-time contract assertions.
var (
	_ Flash  = (*FileFlash)(nil)
	_ Handle = (*fileHandle)(nil)
)

// =============================================================================
// FILE IMAGE
// =============================================================================

// fileImage is the on-disk JSON layout of a FileFlash partition.
type fileImage struct {
	Version    int                            `json:"version"`
	Namespaces map[string]map[string]fileBlob `json:"namespaces"`
}

type fileBlob struct {
	Data     []byte `json:"data"` // base64 in JSON
	Checksum uint64 `json:"checksum"`
}

func newFileImage() *fileImage {
	return &fileImage{
		Version:    LayoutVersion,
		Namespaces: make(map[string]map[string]fileBlob),
	}
}

// =============================================================================
// FILE PARTITION
// =============================================================================

// FileFlash is a partition kept in one JSON file. Every commit rewrites the
// file atomically, so a crash leaves either the previous or the new image.
type FileFlash struct {
	path   string
	mu     sync.Mutex
	image  *fileImage
	logger *slog.Logger
}

// NewFileFlash creates a partition stored at path.
func NewFileFlash(path string, logger *slog.Logger) *FileFlash {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileFlash{path: path, logger: logger}
}

// Path returns the image file path.
func (f *FileFlash) Path() string {
	return f.path
}

// Init loads the image from disk. A missing file is an empty partition.
func (f *FileFlash) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.image = newFileImage()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read partition image: %w", err)
	}

	img := newFileImage()
	if err := json.Unmarshal(data, img); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptLayout, err)
	}
	if img.Version > LayoutVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrNewVersionFound, img.Version, LayoutVersion)
	}
	if img.Version <= 0 {
		return fmt.Errorf("%w: version %d", ErrCorruptLayout, img.Version)
	}
	if img.Namespaces == nil {
		img.Namespaces = make(map[string]map[string]fileBlob)
	}
	f.image = img
	return nil
}

// Erase removes the image file.
func (f *FileFlash) Erase() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.image = nil
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to erase partition: %w", err)
	}
	f.logger.Warn("partition erased", "path", f.path)
	return nil
}

// Open returns a handle on namespace.
func (f *FileFlash) Open(namespace string) (Handle, error) {
	if err := ValidateName(namespace); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.image == nil {
		return nil, ErrNotInitialized
	}
	return &fileHandle{
		flash:     f,
		id:        uuid.NewString(),
		namespace: namespace,
		pending:   make(staged),
	}, nil
}

// commit merges writes into a copy of the image and persists it. The
// in-memory image is replaced only after the file is safely on disk.
func (f *FileFlash) commit(namespace string, writes staged) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.image == nil {
		return ErrNotInitialized
	}

	next := &fileImage{
		Version:    LayoutVersion,
		Namespaces: make(map[string]map[string]fileBlob, len(f.image.Namespaces)+1),
	}
	for ns, blobs := range f.image.Namespaces {
		next.Namespaces[ns] = blobs
	}
	space := make(map[string]fileBlob, len(f.image.Namespaces[namespace])+len(writes))
	for k, v := range f.image.Namespaces[namespace] {
		space[k] = v
	}
	for _, key := range writes.keys() {
		data := writes[key]
		space[key] = fileBlob{Data: data, Checksum: Checksum(data)}
	}
	next.Namespaces[namespace] = space

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode partition image: %w", err)
	}
	if err := util.AtomicWriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write partition image: %w", err)
	}
	f.image = next
	return nil
}

func (f *FileFlash) lookup(namespace, key string) (fileBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.image == nil {
		return fileBlob{}, ErrNotInitialized
	}
	blob, ok := f.image.Namespaces[namespace][key]
	if !ok {
		return fileBlob{}, ErrNotFound
	}
	return blob, nil
}

// =============================================================================
// FILE HANDLE
// =============================================================================

type fileHandle struct {
	flash     *FileFlash
	id        string
	namespace string
	pending   staged
	closed    bool
}

func (h *fileHandle) GetBlob(key string) ([]byte, error) {
	if h.closed {
		return nil, ErrHandleClosed
	}
	if data, ok := h.pending.get(key); ok {
		return data, nil
	}
	blob, err := h.flash.lookup(h.namespace, key)
	if err != nil {
		return nil, err
	}
	if blob.Checksum != Checksum(blob.Data) {
		return nil, fmt.Errorf("%w: %s/%s", ErrCorruptBlob, h.namespace, key)
	}
	return append([]byte(nil), blob.Data...), nil
}

func (h *fileHandle) SetBlob(key string, data []byte) error {
	if h.closed {
		return ErrHandleClosed
	}
	if err := ValidateName(key); err != nil {
		return err
	}
	h.pending.put(key, data)
	return nil
}

func (h *fileHandle) Commit() error {
	if h.closed {
		return ErrHandleClosed
	}
	if len(h.pending) == 0 {
		return nil
	}
	if err := h.flash.commit(h.namespace, h.pending); err != nil {
		return err
	}
	h.flash.logger.Debug("namespace committed", "namespace", h.namespace, "handle", h.id, "blobs", len(h.pending))
	h.pending = make(staged)
	return nil
}

func (h *fileHandle) Close() error {
	h.closed = true
	h.pending = nil
	return nil
}
