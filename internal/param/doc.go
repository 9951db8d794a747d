// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package param is a table-driven store of persistent device parameters.
//
// A Schema declares every parameter up front: its name (also the storage
// key), element kind, capacity for arrays, default value, description and
// the access tier needed to change it. A Controller built from the schema
// keeps the current values in memory, tracks which ones changed since the
// last save, and flushes them to an nvs.Flash partition on a periodic job.
//
// # Key Types
//
//   - Schema: the declared parameter and tier tables
//   - Definition: one declared parameter
//   - Controller: runtime values, dirty tracking, persistence and the tier gate
//   - Scalar, Array, Text: typed handles returned by the Define functions
//   - Info: snapshot of one parameter for display
//
// # Usage
//
// Declare the table once, usually as package-level variables:
//
//	var (
//	    Schema     = param.NewSchema(levels...)
//	    Brightness = param.DefineScalar[uint8](Schema, "Brightness", 1, 64, "Backlight level")
//	    Offsets    = param.DefineArray[int32](Schema, "Offsets", 0, 4, offsetsDefault[:], "Sensor offsets")
//	    Hostname   = param.DefineText(Schema, "Hostname", 2, 32, "device", "mDNS host name")
//	)
//
// Build a controller, load saved values and start the periodic save:
//
//	ctrl, err := param.New(Schema, flash, runner, param.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := ctrl.Init(ctx); err != nil {
//	    return err // wraps ErrInitFailure
//	}
//	defer ctrl.Close(ctx)
//
//	if err := Brightness.Set(ctrl, 80); errors.Is(err, param.ErrAccessDenied) {
//	    ...
//	}
//
// # Result Signals
//
// Mutations return nil on success. ErrNoChange (scalars, resets) and
// ErrArrayNoChange (array and text sets) report that the value was already
// as requested; they are signals, not failures. ErrArrayNoChange also
// matches ErrNoChange with errors.Is.
package param
