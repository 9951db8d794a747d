// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nvs

// sqliteSchema holds the tables of a SQLite-backed partition.
const sqliteSchema = `
-- Layout metadata (layout_version, created_at)
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- One row per (namespace, key) blob
CREATE TABLE IF NOT EXISTS blobs (
    namespace TEXT NOT NULL,
    key TEXT NOT NULL,
    data BLOB NOT NULL,
    checksum INTEGER NOT NULL,  -- xxhash64 of data, stored as signed 64-bit
    updated_at INTEGER NOT NULL, -- Unix timestamp
    PRIMARY KEY (namespace, key)
) WITHOUT ROWID;
`

// sqliteInitMetadata seeds the metadata table of a fresh partition.
const sqliteInitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('layout_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
`

const sqliteUpsertBlob = `
INSERT INTO blobs (namespace, key, data, checksum, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(namespace, key) DO UPDATE SET
    data = excluded.data,
    checksum = excluded.checksum,
    updated_at = excluded.updated_at
`
