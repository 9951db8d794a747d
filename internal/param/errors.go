// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"errors"
	"fmt"

	"github.com/jeranaias/paramstore/internal/gate"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoChange reports that a scalar Set or any Reset found the value
	// already in place. Nothing was modified.
	ErrNoChange = errors.New("no change needed")

	// ErrArrayNoChange reports that an array or text Set found identical
	// contents. It matches ErrNoChange with errors.Is.
	ErrArrayNoChange = fmt.Errorf("%w: array contents identical", ErrNoChange)

	// ErrAccessDenied is returned when the current tier is too high to
	// mutate a parameter.
	ErrAccessDenied = errors.New("access denied")

	// ErrSize is returned for a length or capacity violation.
	ErrSize = errors.New("size error")

	// ErrInvalidArgument is returned for a tier outside the declared table.
	ErrInvalidArgument = gate.ErrInvalidArgument

	// ErrStorageFailure marks blob store failures. The persistence engine
	// logs and retries these; only Close reports them.
	ErrStorageFailure = errors.New("storage failure")

	// ErrInitFailure is returned by Init when the blob store or the save
	// job could not be established. It wraps the underlying cause.
	ErrInitFailure = errors.New("init failure")

	ErrAlreadyInitialized = errors.New("controller already initialized")
	ErrUnknownParam       = errors.New("unknown parameter")
	ErrParse              = errors.New("cannot parse value")
	ErrInvalidSchema      = errors.New("invalid schema")
)
