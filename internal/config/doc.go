// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for paramctl.
//
// Configuration is a single TOML file with defaults for every key,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - StoreConfig: Blob store backend, path and namespace
//   - PersistConfig: Periodic save interval and flush-on-close
//   - AccessConfig: Starting access tier
//   - LogConfig: Log level, format and optional file sink
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PARAMSTORE_*)
//   - The file named by --config, or ~/.paramstore/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	interval := cfg.SaveInterval()
//
// Watch reloads the file on change, which the interactive shell uses to
// pick up edits to the access tier.
package config
