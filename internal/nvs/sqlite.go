// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nvs

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Compile-time contract assertions.
var (
	_ Flash  = (*SQLiteFlash)(nil)
	_ Handle = (*sqliteHandle)(nil)
)

// =============================================================================
// SQLITE PARTITION
// =============================================================================

// SQLiteFlash is a partition stored in a SQLite database file.
type SQLiteFlash struct {
	path   string
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// SQLiteOption configures a SQLiteFlash.
type SQLiteOption func(*SQLiteFlash)

// WithSQLiteLogger sets the logger used for handle lifecycle messages.
func WithSQLiteLogger(logger *slog.Logger) SQLiteOption {
	return func(f *SQLiteFlash) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewSQLiteFlash creates a partition stored at path. Nothing is opened
// until Init is called.
func NewSQLiteFlash(path string, opts ...SQLiteOption) *SQLiteFlash {
	f := &SQLiteFlash{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the database file path.
func (f *SQLiteFlash) Path() string {
	return f.path
}

// Init opens the database and checks its layout.
func (f *SQLiteFlash) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.db == nil {
		if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
			return fmt.Errorf("failed to create partition directory: %w", err)
		}

		db, err := sql.Open("sqlite", f.path)
		if err != nil {
			return fmt.Errorf("failed to open partition: %w", err)
		}

		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		pragmas := []string{
			"PRAGMA journal_mode=DELETE",
			"PRAGMA synchronous=FULL",
			"PRAGMA temp_store=MEMORY",
		}
		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return fmt.Errorf("%w: %v", ErrCorruptLayout, err)
			}
		}
		f.db = db
	}

	if _, err := f.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptLayout, err)
	}
	if _, err := f.db.Exec(sqliteInitMetadata); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptLayout, err)
	}

	var raw string
	err := f.db.QueryRow("SELECT value FROM metadata WHERE key = 'layout_version'").Scan(&raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptLayout, err)
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: layout_version %q", ErrCorruptLayout, raw)
	}
	if version > LayoutVersion {
		return fmt.Errorf("%w: version %d, supported %d", ErrNewVersionFound, version, LayoutVersion)
	}
	return nil
}

// Erase closes the database and removes its files.
func (f *SQLiteFlash) Erase() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.db != nil {
		f.db.Close()
		f.db = nil
	}
	for _, p := range []string{f.path, f.path + "-journal", f.path + "-wal", f.path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to erase partition: %w", err)
		}
	}
	f.logger.Warn("partition erased", "path", f.path)
	return nil
}

// Close closes the database. The partition can be initialized again later.
func (f *SQLiteFlash) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	return err
}

// Open returns a handle on namespace.
func (f *SQLiteFlash) Open(namespace string) (Handle, error) {
	if err := ValidateName(namespace); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil, ErrNotInitialized
	}
	h := &sqliteHandle{
		flash:     f,
		id:        uuid.NewString(),
		namespace: namespace,
		pending:   make(staged),
	}
	f.logger.Debug("namespace opened", "namespace", namespace, "handle", h.id)
	return h, nil
}

// database returns the open database or ErrNotInitialized.
func (f *SQLiteFlash) database() (*sql.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil, ErrNotInitialized
	}
	return f.db, nil
}

// =============================================================================
// SQLITE HANDLE
// =============================================================================

type sqliteHandle struct {
	flash     *SQLiteFlash
	id        string
	namespace string
	pending   staged
	closed    bool
}

func (h *sqliteHandle) GetBlob(key string) ([]byte, error) {
	if h.closed {
		return nil, ErrHandleClosed
	}
	if data, ok := h.pending.get(key); ok {
		return data, nil
	}
	db, err := h.flash.database()
	if err != nil {
		return nil, err
	}

	var (
		data     []byte
		checksum int64
	)
	err = db.QueryRow(
		"SELECT data, checksum FROM blobs WHERE namespace = ? AND key = ?",
		h.namespace, key,
	).Scan(&data, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	if uint64(checksum) != Checksum(data) {
		return nil, fmt.Errorf("%w: %s/%s", ErrCorruptBlob, h.namespace, key)
	}
	return data, nil
}

func (h *sqliteHandle) SetBlob(key string, data []byte) error {
	if h.closed {
		return ErrHandleClosed
	}
	if err := ValidateName(key); err != nil {
		return err
	}
	h.pending.put(key, data)
	return nil
}

func (h *sqliteHandle) Commit() error {
	if h.closed {
		return ErrHandleClosed
	}
	if len(h.pending) == 0 {
		return nil
	}
	db, err := h.flash.database()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin commit: %w", err)
	}
	now := time.Now().Unix()
	for _, key := range h.pending.keys() {
		data := h.pending[key]
		if _, err := tx.Exec(sqliteUpsertBlob, h.namespace, key, data, int64(Checksum(data)), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to write blob %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	h.flash.logger.Debug("namespace committed", "namespace", h.namespace, "handle", h.id, "blobs", len(h.pending))
	h.pending = make(staged)
	return nil
}

func (h *sqliteHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if n := len(h.pending); n > 0 {
		h.flash.logger.Debug("discarding uncommitted writes", "namespace", h.namespace, "handle", h.id, "blobs", n)
	}
	h.pending = nil
	return nil
}
