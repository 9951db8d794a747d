// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements paramctl, the command-line front end of the
// parameter store.
//
// Every command opens a Session (config, logger, blob store and an
// initialized param.Controller), does its work and closes the session,
// which writes unsaved parameters when the command changed something.
//
// # Key Types
//
//   - Command: enumeration of the available commands
//   - Args: global flags plus the raw arguments of the command
//   - App: runs one command against a pair of output streams
//   - Session: an initialized controller with the resources it owns
//   - JSONResponse: the envelope of every --json reply
//
// # Usage
//
//	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
//
// # Commands Overview
//
//   - list, get, set, reset: read and change parameters
//   - tier: show the access tier table
//   - flush: write unsaved parameters
//   - shell: interactive console with periodic background saving
//   - demo: walkthroughs against the built-in device table
//   - schema: print or validate a parameter table
//   - config: inspect or edit the config file
//
// # Exit Codes
//
// Failures map to distinct exit codes (see GetExitCode): usage 2, config 3,
// access denied 4, storage 5, bad value 6, unknown parameter 7.
//
// All commands support --json for scripting.
package cli
