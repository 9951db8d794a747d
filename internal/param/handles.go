// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"fmt"
)

// =============================================================================
// HANDLE
// =============================================================================

// handle identifies one parameter of a schema. A handle may be used with any
// Controller built from the same schema.
type handle struct {
	schema *Schema
	index  int
	name   string
}

// bind returns the descriptor index of the handle in c. Using a handle with
// a controller built from another schema is a programming error and panics.
func (h handle) bind(c *Controller) int {
	if c.schema != h.schema || h.index >= len(c.descs) {
		panic(fmt.Sprintf("param: %s used with a controller built from a different schema", h.name))
	}
	return h.index
}

// Name returns the parameter name, which is also its storage key.
func (h handle) Name() string {
	return h.name
}

// Dirty reports whether the parameter holds an unsaved value.
func (h handle) Dirty(c *Controller) bool {
	dirty, _ := c.flags(h.bind(c))
	return dirty
}

// IsDefault reports whether the parameter equals its default.
func (h handle) IsDefault(c *Controller) bool {
	_, isDefault := c.flags(h.bind(c))
	return isDefault
}

// State returns the persistence state of the parameter.
func (h handle) State(c *Controller) State {
	idx := h.bind(c)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.descs[idx].state()
}

// Reset restores the default value. It returns ErrNoChange when the value is
// already the default. No tier check is made.
func (h handle) Reset(c *Controller) error {
	return c.reset(h.bind(c))
}

// Print renders the value into buf as a NUL-terminated string. It returns
// the text length when it fits, which is always less than len(buf), or
// len(buf) when the text was truncated.
func (h handle) Print(c *Controller, buf []byte) int {
	return printInto(buf, c.text(h.bind(c)))
}

// Render returns the full text form of the value.
func (h handle) Render(c *Controller) string {
	return c.text(h.bind(c))
}

// =============================================================================
// SCALAR
// =============================================================================

// Scalar is a typed handle on a scalar parameter.
type Scalar[T Elem] struct {
	handle
}

// Get returns the current value.
func (p Scalar[T]) Get(c *Controller) T {
	return decodeElems[T](c.read(p.bind(c)), 1)[0]
}

// Set stores v. It returns ErrAccessDenied when the current tier is above
// the parameter's tier and ErrNoChange when v is already stored.
func (p Scalar[T]) Set(c *Controller, v T) error {
	return c.assign(p.bind(c), 1, encodeElems([]T{v}, 1), ErrNoChange)
}

// =============================================================================
// ARRAY
// =============================================================================

// Array is a typed handle on a fixed-length array parameter.
type Array[T Elem] struct {
	handle
	capacity int
}

// Cap returns the declared element count.
func (p Array[T]) Cap() int {
	return p.capacity
}

// Get returns a copy of all Cap elements.
func (p Array[T]) Get(c *Controller) []T {
	return decodeElems[T](c.read(p.bind(c)), p.capacity)
}

// Set stores vals, zero-filling elements past len(vals). It returns
// ErrAccessDenied for an insufficient tier, ErrSize when len(vals) exceeds
// Cap, and ErrArrayNoChange when the result equals the stored value.
func (p Array[T]) Set(c *Controller, vals []T) error {
	idx := p.bind(c)
	var raw []byte
	if len(vals) <= p.capacity {
		raw = encodeElems(vals, p.capacity)
	}
	return c.assign(idx, len(vals), raw, ErrArrayNoChange)
}

// Copy copies all Cap elements into dst. It returns ErrSize, leaving dst
// untouched, when len(dst) < Cap.
func (p Array[T]) Copy(c *Controller, dst []T) error {
	idx := p.bind(c)
	if len(dst) < p.capacity {
		return fmt.Errorf("%w: %s needs %d elements, buffer holds %d", ErrSize, p.name, p.capacity, len(dst))
	}
	copy(dst, decodeElems[T](c.read(idx), p.capacity))
	return nil
}

// =============================================================================
// TEXT
// =============================================================================

// Text is a handle on a character array parameter.
type Text struct {
	handle
	capacity int
}

// Cap returns the capacity in bytes.
func (p Text) Cap() int {
	return p.capacity
}

// Get returns the characters up to the first NUL.
func (p Text) Get(c *Controller) string {
	return c.text(p.bind(c))
}

// Set stores s, zero-filling the rest of the array. Same results as
// Array.Set with len(s) as the element count.
func (p Text) Set(c *Controller, s string) error {
	idx := p.bind(c)
	var raw []byte
	if len(s) <= p.capacity {
		raw = make([]byte, p.capacity)
		copy(raw, s)
	}
	return c.assign(idx, len(s), raw, ErrArrayNoChange)
}

// Copy copies all Cap bytes, padding included, into dst. It returns ErrSize,
// leaving dst untouched, when len(dst) < Cap.
func (p Text) Copy(c *Controller, dst []byte) error {
	idx := p.bind(c)
	if len(dst) < p.capacity {
		return fmt.Errorf("%w: %s needs %d bytes, buffer holds %d", ErrSize, p.name, p.capacity, len(dst))
	}
	copy(dst, c.read(idx))
	return nil
}
