// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package device declares the parameter table of the device firmware.
package device

import (
	"github.com/jeranaias/paramstore/internal/gate"
	"github.com/jeranaias/paramstore/internal/param"
)

// =============================================================================
// ACCESS TIERS
// =============================================================================

const (
	TierFactory = 0
	TierService = 1
	TierUser    = 2
)

// Levels is the tier table, most privileged first.
var Levels = []gate.Level{
	{Tier: TierFactory, Description: "Factory"},
	{Tier: TierService, Description: "Service"},
	{Tier: TierUser, Description: "User"},
}

// =============================================================================
// ARRAY DEFAULTS
// =============================================================================
//
// Each array default is paired with an assertion that fails to compile when
// the literal does not hold exactly the declared number of elements.

const exampleIntArrayLen = 4

var exampleIntArrayDefault = [...]int32{1, 2, 3, 4}

var _ = [1]struct{}{}[len(exampleIntArrayDefault)-exampleIntArrayLen]

const calibrationLen = 3

var calibrationDefault = [...]float32{1.0, 1.0, 1.0}

var _ = [1]struct{}{}[len(calibrationDefault)-calibrationLen]

// =============================================================================
// PARAMETER TABLE
// =============================================================================

// Schema holds every declared parameter.
var Schema = param.NewSchema(Levels...)

var (
	ExampleCounter = param.DefineScalar[uint8](Schema, "ExampleCounter", TierFactory, 0,
		"Example counter")

	ExampleString = param.DefineText(Schema, "ExampleString", TierService, 32, "Hello, world!",
		"Example string")

	ExampleIntArray = param.DefineArray[int32](Schema, "ExampleIntArray", TierFactory, exampleIntArrayLen, exampleIntArrayDefault[:],
		"Example integer array")

	Brightness = param.DefineScalar[uint8](Schema, "Brightness", TierUser, 64,
		"Display backlight level")

	TempOffset = param.DefineScalar[int16](Schema, "TempOffset", TierService, 0,
		"Temperature sensor offset in hundredths of a degree")

	Calibration = param.DefineArray[float32](Schema, "Calibration", TierFactory, calibrationLen, calibrationDefault[:],
		"Per-axis gain calibration")

	WifiEnabled = param.DefineScalar[bool](Schema, "WifiEnabled", TierUser, true,
		"Wireless radio enabled")
)
