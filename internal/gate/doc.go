// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gate holds the global access tier that guards parameter mutation.
//
// Tiers are small integers contiguous from 0. Lower numbers are more
// privileged: a parameter declared at tier T may be changed only while the
// current tier is T or lower. A new gate starts at the highest tier, the
// least privileged one.
//
// # Usage
//
//	g, err := gate.New([]gate.Level{
//	    {Tier: 0, Description: "Factory"},
//	    {Tier: 1, Description: "Service"},
//	    {Tier: 2, Description: "User"},
//	}, gate.WithLogger(logger))
//
//	if err := g.ChangeTier(1); err != nil {
//	    return err
//	}
//	if g.Permits(paramTier) {
//	    // mutate
//	}
package gate
