// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"bytes"
)

// =============================================================================
// STATE
// =============================================================================

// State is the persistence state of one parameter.
type State int

const (
	StateCleanDefault State = iota
	StateCleanCustom
	StateDirtyDefault
	StateDirtyCustom
)

func (s State) String() string {
	switch s {
	case StateCleanDefault:
		return "clean-default"
	case StateCleanCustom:
		return "clean-custom"
	case StateDirtyDefault:
		return "dirty-default"
	case StateDirtyCustom:
		return "dirty-custom"
	}
	return "unknown"
}

// Dirty reports whether the state has an unsaved value.
func (s State) Dirty() bool {
	return s == StateDirtyDefault || s == StateDirtyCustom
}

// =============================================================================
// DESCRIPTOR
// =============================================================================

// descriptor is the runtime record of one parameter. Guarded by the owning
// Controller's mutex.
type descriptor struct {
	def       *Definition
	value     []byte
	dirty     bool
	isDefault bool
}

func newDescriptor(def *Definition) *descriptor {
	return &descriptor{
		def:       def,
		value:     append([]byte(nil), def.Default...),
		isDefault: true,
	}
}

// refresh recomputes isDefault from the current bytes.
func (d *descriptor) refresh() {
	d.isDefault = bytes.Equal(d.value, d.def.Default)
}

// replace installs next as the value and marks the descriptor dirty.
func (d *descriptor) replace(next []byte) {
	d.value = next
	d.dirty = true
	d.refresh()
}

func (d *descriptor) restoreDefault() {
	d.value = append([]byte(nil), d.def.Default...)
	d.isDefault = true
}

func (d *descriptor) state() State {
	switch {
	case d.dirty && d.isDefault:
		return StateDirtyDefault
	case d.dirty:
		return StateDirtyCustom
	case d.isDefault:
		return StateCleanDefault
	}
	return StateCleanCustom
}

// =============================================================================
// INFO
// =============================================================================

// Info is a point-in-time snapshot of one parameter.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tier        int    `json:"tier"`
	Kind        string `json:"kind"`
	Capacity    int    `json:"capacity,omitempty"`
	Value       string `json:"value"`
	Default     string `json:"default"`
	Dirty       bool   `json:"dirty"`
	IsDefault   bool   `json:"is_default"`
	State       string `json:"state"`
}

func (d *descriptor) info() Info {
	return Info{
		Name:        d.def.Name,
		Description: d.def.Description,
		Tier:        d.def.Tier,
		Kind:        d.def.Kind.String(),
		Capacity:    d.def.Capacity,
		Value:       render(d.def, d.value),
		Default:     render(d.def, d.def.Default),
		Dirty:       d.dirty,
		IsDefault:   d.isDefault,
		State:       d.state().String(),
	}
}
