// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the slog logger used by paramctl from the [log]
// config section.
//
// Console output is text or JSON at the configured level. An optional log
// file receives every record as JSON through a slog-multi fan-out.
package logging
