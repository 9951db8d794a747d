// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the store, config and CLI
// packages.
//
//   - AtomicWriteFile: crash-safe file replacement with fsync, used by the
//     JSON blob store and by config saving
//   - TruncateRunes: UTF-8 safe truncation for table columns
package util
