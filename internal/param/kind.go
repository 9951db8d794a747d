// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// =============================================================================
// KINDS
// =============================================================================

// Kind is the element type of a parameter. Values are stored as raw
// little-endian bytes, Size bytes per element.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindChar // text arrays
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindBool:    "bool",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindChar:    "char",
}

var kindSizes = [...]int{
	KindInvalid: 0,
	KindBool:    1,
	KindInt8:    1,
	KindInt16:   2,
	KindInt32:   4,
	KindInt64:   8,
	KindUint8:   1,
	KindUint16:  2,
	KindUint32:  4,
	KindUint64:  8,
	KindFloat32: 4,
	KindFloat64: 8,
	KindChar:    1,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Size returns the size of one element in bytes, or 0 for an invalid kind.
func (k Kind) Size() int {
	if int(k) < len(kindSizes) {
		return kindSizes[k]
	}
	return 0
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k > KindInvalid && int(k) < len(kindNames)
}

// ParseKind parses a kind name such as "uint8" or "float32". "string" is
// accepted as an alias of "char".
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "string" {
		return KindChar, nil
	}
	for k := KindBool; int(k) < len(kindNames); k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown kind %q", s)
}

// Elem is the set of Go types a typed handle can carry.
type Elem interface {
	~bool |
		~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// kindOf maps a Go element type to its Kind.
func kindOf[T Elem]() Kind {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int8:
		return KindInt8
	case reflect.Int16:
		return KindInt16
	case reflect.Int32:
		return KindInt32
	case reflect.Int64:
		return KindInt64
	case reflect.Uint8:
		return KindUint8
	case reflect.Uint16:
		return KindUint16
	case reflect.Uint32:
		return KindUint32
	case reflect.Uint64:
		return KindUint64
	case reflect.Float32:
		return KindFloat32
	case reflect.Float64:
		return KindFloat64
	}
	return KindInvalid
}

// =============================================================================
// ENCODING
// =============================================================================

// encodeElems encodes vals into a zeroed buffer of capacity elements.
// len(vals) must not exceed capacity.
func encodeElems[T Elem](vals []T, capacity int) []byte {
	buf := make([]byte, capacity*kindOf[T]().Size())
	if _, err := binary.Encode(buf, binary.LittleEndian, vals); err != nil {
		panic(fmt.Sprintf("param: encode %T: %v", vals, err))
	}
	return buf
}

// decodeElems decodes n elements from raw.
func decodeElems[T Elem](raw []byte, n int) []T {
	out := make([]T, n)
	if _, err := binary.Decode(raw, binary.LittleEndian, out); err != nil {
		panic(fmt.Sprintf("param: decode %T: %v", out, err))
	}
	return out
}

// =============================================================================
// ELEMENT TEXT FORMS
// =============================================================================

// formatElem renders one element of kind k stored in b.
func formatElem(k Kind, b []byte) string {
	le := binary.LittleEndian
	switch k {
	case KindBool:
		return strconv.FormatBool(b[0] != 0)
	case KindInt8:
		return strconv.FormatInt(int64(int8(b[0])), 10)
	case KindInt16:
		return strconv.FormatInt(int64(int16(le.Uint16(b))), 10)
	case KindInt32:
		return strconv.FormatInt(int64(int32(le.Uint32(b))), 10)
	case KindInt64:
		return strconv.FormatInt(int64(le.Uint64(b)), 10)
	case KindUint8, KindChar:
		return strconv.FormatUint(uint64(b[0]), 10)
	case KindUint16:
		return strconv.FormatUint(uint64(le.Uint16(b)), 10)
	case KindUint32:
		return strconv.FormatUint(uint64(le.Uint32(b)), 10)
	case KindUint64:
		return strconv.FormatUint(le.Uint64(b), 10)
	case KindFloat32:
		return strconv.FormatFloat(float64(math.Float32frombits(le.Uint32(b))), 'f', 6, 32)
	case KindFloat64:
		return strconv.FormatFloat(math.Float64frombits(le.Uint64(b)), 'f', 6, 64)
	}
	return "?"
}

// parseElem parses the text form of one element of kind k.
func parseElem(k Kind, s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	le := binary.LittleEndian
	buf := make([]byte, k.Size())

	switch k {
	case KindBool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", ErrParse, s)
		}
		if v {
			buf[0] = 1
		}
	case KindInt8, KindInt16, KindInt32, KindInt64:
		v, err := strconv.ParseInt(s, 10, k.Size()*8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid %s", ErrParse, s, k)
		}
		putUint(buf, uint64(v))
	case KindUint8, KindUint16, KindUint32, KindUint64, KindChar:
		v, err := strconv.ParseUint(s, 10, k.Size()*8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid %s", ErrParse, s, k)
		}
		putUint(buf, v)
	case KindFloat32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid %s", ErrParse, s, k)
		}
		le.PutUint32(buf, math.Float32bits(float32(v)))
	case KindFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid %s", ErrParse, s, k)
		}
		le.PutUint64(buf, math.Float64bits(v))
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", ErrParse, k)
	}
	return buf, nil
}

// putUint stores the low len(buf) bytes of v little-endian.
func putUint(buf []byte, v uint64) {
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
}

// encodeValue converts a decoded TOML value to one element of kind k.
func encodeValue(k Kind, v any) ([]byte, error) {
	switch val := v.(type) {
	case bool:
		if k != KindBool {
			return nil, fmt.Errorf("%w: bool given for %s", ErrParse, k)
		}
		return parseElem(k, strconv.FormatBool(val))
	case int64:
		if k == KindBool || k == KindChar {
			return nil, fmt.Errorf("%w: integer given for %s", ErrParse, k)
		}
		return parseElem(k, strconv.FormatInt(val, 10))
	case float64:
		if k != KindFloat32 && k != KindFloat64 {
			return nil, fmt.Errorf("%w: float given for %s", ErrParse, k)
		}
		return parseElem(k, strconv.FormatFloat(val, 'g', -1, 64))
	}
	return nil, fmt.Errorf("%w: unsupported value %v (%T) for %s", ErrParse, v, v, k)
}
