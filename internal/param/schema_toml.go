// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/paramstore/internal/gate"
)

// schemaFile is the TOML form of a schema:
//
//	[[level]]
//	tier = 0
//	description = "Factory"
//
//	[[param]]
//	name = "Offsets"
//	kind = "int32"
//	tier = 0
//	capacity = 4
//	default = [1, 2, 3, 4]
//	description = "Sensor offsets"
type schemaFile struct {
	Levels []gate.Level  `toml:"level"`
	Params []schemaEntry `toml:"param"`
}

type schemaEntry struct {
	Name        string `toml:"name"`
	Kind        string `toml:"kind"`
	Tier        int    `toml:"tier"`
	Capacity    int    `toml:"capacity"`
	Default     any    `toml:"default"`
	Description string `toml:"description"`
}

// LoadSchemaTOML reads a schema from a TOML file.
func LoadSchemaTOML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	s, err := ParseSchemaTOML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSchemaTOML builds a schema from TOML. Unlike Go-declared tables there
// is no compile-time length check, so array defaults are checked here and
// the schema is validated before it is returned. A missing default means
// all zero.
func ParseSchemaTOML(data []byte) (*Schema, error) {
	var file schemaFile
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidSchema, undecoded)
	}

	s := NewSchema(file.Levels...)
	for _, entry := range file.Params {
		def, err := entry.definition()
		if err != nil {
			s.problem("%s: %v", entry.Name, err)
			continue
		}
		s.add(def)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (e schemaEntry) definition() (Definition, error) {
	kind, err := ParseKind(e.Kind)
	if err != nil {
		return Definition{}, err
	}
	def := Definition{
		Name:        e.Name,
		Description: e.Description,
		Tier:        e.Tier,
		Kind:        kind,
		Capacity:    e.Capacity,
	}
	if def.Capacity < 0 {
		return Definition{}, fmt.Errorf("negative capacity %d", def.Capacity)
	}
	if kind == KindChar && def.Capacity == 0 {
		return Definition{}, fmt.Errorf("text needs a capacity")
	}

	raw := make([]byte, def.ByteSize())
	if e.Default == nil {
		def.Default = raw
		return def, nil
	}

	switch {
	case kind == KindChar:
		str, ok := e.Default.(string)
		if !ok {
			return Definition{}, fmt.Errorf("text default must be a string, got %T", e.Default)
		}
		if len(str) > def.Capacity {
			return Definition{}, fmt.Errorf("default is %d bytes, capacity is %d", len(str), def.Capacity)
		}
		copy(raw, str)

	case def.IsArray():
		items, ok := e.Default.([]any)
		if !ok {
			return Definition{}, fmt.Errorf("array default must be a list, got %T", e.Default)
		}
		if len(items) != def.Capacity {
			return Definition{}, fmt.Errorf("default has %d elements, capacity is %d", len(items), def.Capacity)
		}
		size := kind.Size()
		for i, item := range items {
			elem, err := encodeValue(kind, item)
			if err != nil {
				return Definition{}, fmt.Errorf("default[%d]: %w", i, err)
			}
			copy(raw[i*size:], elem)
		}

	default:
		elem, err := encodeValue(kind, e.Default)
		if err != nil {
			return Definition{}, fmt.Errorf("default: %w", err)
		}
		copy(raw, elem)
	}
	def.Default = raw
	return def, nil
}
