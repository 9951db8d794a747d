// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"bytes"
	"fmt"
	"strings"
)

// =============================================================================
// CORE OPERATIONS
// =============================================================================
//
// Every operation below takes the controller lock for its full duration and
// leaves the descriptor untouched on any non-nil return.

// assign replaces the value of descriptor idx with raw. count is the number
// of elements the caller supplied; it is checked against capacity after the
// tier check, and raw is not inspected when it is too large. noChange is
// returned when raw equals the current value.
func (c *Controller) assign(idx, count int, raw []byte, noChange error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.descs[idx]
	if err := c.checkTier(d); err != nil {
		return err
	}
	if count > d.def.Len() {
		return fmt.Errorf("%w: %s holds %d elements, got %d", ErrSize, d.def.Name, d.def.Len(), count)
	}
	if bytes.Equal(d.value, raw) {
		return noChange
	}
	d.replace(raw)
	return nil
}

// reset restores the default of descriptor idx. Resets are maintenance
// operations and skip the tier check.
func (c *Controller) reset(idx int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.descs[idx]
	if bytes.Equal(d.value, d.def.Default) {
		return ErrNoChange
	}
	d.replace(append([]byte(nil), d.def.Default...))
	return nil
}

// read returns a copy of the current bytes of descriptor idx.
func (c *Controller) read(idx int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.descs[idx].value...)
}

// text renders the current value of descriptor idx.
func (c *Controller) text(idx int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.descs[idx]
	return render(d.def, d.value)
}

func (c *Controller) flags(idx int) (dirty, isDefault bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.descs[idx]
	return d.dirty, d.isDefault
}

func (c *Controller) checkTier(d *descriptor) error {
	if current := c.gate.CurrentTier(); current > d.def.Tier {
		return fmt.Errorf("%w: %s requires tier %d, current tier is %d", ErrAccessDenied, d.def.Name, d.def.Tier, current)
	}
	return nil
}

// =============================================================================
// NAME-INDEXED API
// =============================================================================

// SetText parses text according to the named parameter's kind and sets it.
//
// Scalars take a single element ("42", "true", "0.5"). Arrays take a comma
// separated list, optionally in brackets ("[1,2,3]"); fewer elements than
// capacity leave the rest zero. Text parameters take the raw string.
func (c *Controller) SetText(name, text string) error {
	idx, err := c.index(name)
	if err != nil {
		return err
	}
	def := &c.defs[idx]

	switch {
	case def.IsText():
		if len(text) > def.Capacity {
			return c.assign(idx, len(text), nil, ErrArrayNoChange)
		}
		raw := make([]byte, def.Capacity)
		copy(raw, text)
		return c.assign(idx, len(text), raw, ErrArrayNoChange)

	case def.IsArray():
		items := splitList(text)
		if len(items) > def.Capacity {
			return c.assign(idx, len(items), nil, ErrArrayNoChange)
		}
		raw := make([]byte, def.ByteSize())
		size := def.Kind.Size()
		for i, item := range items {
			elem, err := parseElem(def.Kind, item)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			copy(raw[i*size:], elem)
		}
		return c.assign(idx, len(items), raw, ErrArrayNoChange)

	default:
		raw, err := parseElem(def.Kind, text)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return c.assign(idx, 1, raw, ErrNoChange)
	}
}

// ResetByName restores the named parameter's default.
func (c *Controller) ResetByName(name string) error {
	idx, err := c.index(name)
	if err != nil {
		return err
	}
	return c.reset(idx)
}

// PrintByName renders the named parameter into buf. See Scalar.Print for
// the return value.
func (c *Controller) PrintByName(name string, buf []byte) (int, error) {
	idx, err := c.index(name)
	if err != nil {
		return 0, err
	}
	return printInto(buf, c.text(idx)), nil
}

// Render returns the full text form of the named parameter's value.
func (c *Controller) Render(name string) (string, error) {
	idx, err := c.index(name)
	if err != nil {
		return "", err
	}
	return c.text(idx), nil
}

// splitList splits "[a, b, c]" or "a,b,c" into trimmed items. An empty list
// yields no items.
func splitList(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	items := strings.Split(text, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}
