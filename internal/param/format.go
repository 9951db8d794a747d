// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"bytes"
	"strings"
)

// render returns the text form of raw for def:
//   - text: the characters up to the first NUL
//   - scalar: the element format of its kind
//   - array: "[e0,e1,...]"
func render(def *Definition, raw []byte) string {
	if def.IsText() {
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			return string(raw[:i])
		}
		return string(raw)
	}

	size := def.Kind.Size()
	if !def.IsArray() {
		return formatElem(def.Kind, raw[:size])
	}

	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < def.Capacity; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(formatElem(def.Kind, raw[i*size:(i+1)*size]))
	}
	sb.WriteByte(']')
	return sb.String()
}

// DefaultText returns the text form of the default value.
func (d Definition) DefaultText() string {
	if len(d.Default) != d.ByteSize() {
		return ""
	}
	return render(&d, d.Default)
}

// printInto copies s into buf as a NUL-terminated string. It returns len(s)
// when the text fits (always < len(buf)) and len(buf) when it had to be
// truncated, in which case the last byte of buf is the terminator. An empty
// buf receives nothing and 0 is returned.
func printInto(buf []byte, s string) int {
	if len(buf) == 0 {
		return 0
	}
	if len(s) < len(buf) {
		copy(buf, s)
		buf[len(s)] = 0
		return len(s)
	}
	copy(buf, s[:len(buf)-1])
	buf[len(buf)-1] = 0
	return len(buf)
}
