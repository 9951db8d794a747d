// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/jeranaias/paramstore/internal/gate"
	"github.com/jeranaias/paramstore/internal/nvs"
)

// =============================================================================
// DEFINITION
// =============================================================================

// Definition is one declared parameter. It never changes after the schema
// is built.
type Definition struct {
	Name        string
	Description string
	Tier        int
	Kind        Kind
	Capacity    int    // element count for arrays and text, 0 for scalars
	Default     []byte // little-endian, ByteSize bytes
}

// IsArray reports whether the parameter holds a fixed-length array. Text
// parameters are arrays of KindChar.
func (d Definition) IsArray() bool {
	return d.Capacity > 0
}

// IsText reports whether the parameter is a character array.
func (d Definition) IsText() bool {
	return d.Kind == KindChar
}

// Len returns the element count: 1 for scalars, Capacity for arrays.
func (d Definition) Len() int {
	if d.Capacity > 0 {
		return d.Capacity
	}
	return 1
}

// ByteSize returns the size of the stored value in bytes.
func (d Definition) ByteSize() int {
	return d.Len() * d.Kind.Size()
}

// =============================================================================
// SCHEMA
// =============================================================================

// Schema is the declared tier table plus the parameter table. Parameters are
// added with DefineScalar, DefineArray and DefineText, usually from
// package-level variable declarations. Problems found while defining are
// collected and reported by Validate.
type Schema struct {
	defs     []Definition
	levels   []gate.Level
	problems *multierror.Error
}

// NewSchema creates an empty schema with the given tier table.
func NewSchema(levels ...gate.Level) *Schema {
	s := &Schema{levels: make([]gate.Level, len(levels))}
	copy(s.levels, levels)
	return s
}

// Tiers returns the tier table.
func (s *Schema) Tiers() []gate.Level {
	out := make([]gate.Level, len(s.levels))
	copy(out, s.levels)
	return out
}

// Definitions returns the parameter table in declaration order.
func (s *Schema) Definitions() []Definition {
	out := make([]Definition, len(s.defs))
	for i, d := range s.defs {
		d.Default = append([]byte(nil), d.Default...)
		out[i] = d
	}
	return out
}

// Len returns the number of declared parameters.
func (s *Schema) Len() int {
	return len(s.defs)
}

func (s *Schema) add(def Definition) int {
	s.defs = append(s.defs, def)
	return len(s.defs) - 1
}

func (s *Schema) problem(format string, args ...any) {
	s.problems = multierror.Append(s.problems, fmt.Errorf("%w: %s", ErrInvalidSchema, fmt.Sprintf(format, args...)))
}

// Validate checks the tier table and every definition: names must be valid
// unique storage keys, tiers must exist in the tier table, and defaults must
// fill the declared capacity. Every problem found is reported.
func (s *Schema) Validate() error {
	var result *multierror.Error
	if s.problems != nil {
		result = multierror.Append(result, s.problems.Errors...)
	}
	if err := gate.ValidateLevels(s.levels); err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: %w", ErrInvalidSchema, err))
	}

	maxTier := len(s.levels) - 1
	seen := make(map[string]bool, len(s.defs))
	for _, d := range s.defs {
		if err := nvs.ValidateName(d.Name); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %w", ErrInvalidSchema, err))
		}
		if seen[d.Name] {
			result = multierror.Append(result, fmt.Errorf("%w: duplicate key %q", ErrInvalidSchema, d.Name))
		}
		seen[d.Name] = true

		if d.Tier < 0 || d.Tier > maxTier {
			result = multierror.Append(result, fmt.Errorf("%w: %s: tier %d not in tier table", ErrInvalidSchema, d.Name, d.Tier))
		}
		if !d.Kind.Valid() {
			result = multierror.Append(result, fmt.Errorf("%w: %s: invalid kind", ErrInvalidSchema, d.Name))
			continue
		}
		if d.Capacity < 0 {
			result = multierror.Append(result, fmt.Errorf("%w: %s: negative capacity %d", ErrInvalidSchema, d.Name, d.Capacity))
			continue
		}
		if d.Kind == KindChar && d.Capacity == 0 {
			result = multierror.Append(result, fmt.Errorf("%w: %s: text needs a capacity", ErrInvalidSchema, d.Name))
			continue
		}
		if len(d.Default) != d.ByteSize() {
			result = multierror.Append(result, fmt.Errorf("%w: %s: default is %d bytes, want %d",
				ErrInvalidSchema, d.Name, len(d.Default), d.ByteSize()))
		}
	}
	return result.ErrorOrNil()
}

// =============================================================================
// DEFINE HELPERS
// =============================================================================

// DefineScalar declares a scalar parameter and returns its handle.
func DefineScalar[T Elem](s *Schema, name string, tier int, def T, description string) Scalar[T] {
	idx := s.add(Definition{
		Name:        name,
		Description: description,
		Tier:        tier,
		Kind:        kindOf[T](),
		Default:     encodeElems([]T{def}, 1),
	})
	return Scalar[T]{handle{schema: s, index: idx, name: name}}
}

// DefineArray declares a fixed-length array parameter. def must hold exactly
// capacity elements.
func DefineArray[T Elem](s *Schema, name string, tier int, capacity int, def []T, description string) Array[T] {
	if capacity <= 0 {
		s.problem("%s: array capacity must be positive, got %d", name, capacity)
		capacity = 1
	}
	if len(def) != capacity {
		s.problem("%s: default has %d elements, capacity is %d", name, len(def), capacity)
		if len(def) > capacity {
			def = def[:capacity]
		}
	}
	idx := s.add(Definition{
		Name:        name,
		Description: description,
		Tier:        tier,
		Kind:        kindOf[T](),
		Capacity:    capacity,
		Default:     encodeElems(def, capacity),
	})
	return Array[T]{handle: handle{schema: s, index: idx, name: name}, capacity: capacity}
}

// DefineText declares a character array parameter of capacity bytes. The
// default may be shorter than capacity and is zero padded.
func DefineText(s *Schema, name string, tier int, capacity int, def string, description string) Text {
	if capacity <= 0 {
		s.problem("%s: text capacity must be positive, got %d", name, capacity)
		capacity = 1
	}
	if len(def) > capacity {
		s.problem("%s: default is %d bytes, capacity is %d", name, len(def), capacity)
		def = def[:capacity]
	}
	raw := make([]byte, capacity)
	copy(raw, def)
	idx := s.add(Definition{
		Name:        name,
		Description: description,
		Tier:        tier,
		Kind:        KindChar,
		Capacity:    capacity,
		Default:     raw,
	})
	return Text{handle: handle{schema: s, index: idx, name: name}, capacity: capacity}
}
