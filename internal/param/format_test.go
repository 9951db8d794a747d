// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/paramstore/internal/nvs"
)

func TestPrint_TruncationSentinel(t *testing.T) {
	c, _ := newController(t, nvs.NewMemFlash())
	require.NoError(t, intArray.Set(c, []int32{99, 88, 77, 66}))
	full := "[99,88,77,66]"

	// Fits with room for the terminator
	buf := make([]byte, len(full)+1)
	n := intArray.Print(c, buf)
	require.Equal(t, len(full), n)
	require.Less(t, n, len(buf))
	require.Equal(t, full, string(buf[:n]))
	require.Equal(t, byte(0), buf[n])

	// One byte short: truncated
	buf = make([]byte, len(full))
	n = intArray.Print(c, buf)
	require.Equal(t, len(buf), n)
	require.Equal(t, byte(0), buf[len(buf)-1])
	require.Equal(t, full[:len(full)-1], string(buf[:len(buf)-1]))

	buf = make([]byte, 8)
	require.Equal(t, 8, intArray.Print(c, buf))
	require.Equal(t, "[99,88,", string(buf[:7]))

	require.Equal(t, 0, intArray.Print(c, nil))
}

func TestPrint_Scalars(t *testing.T) {
	c, _ := newController(t, nvs.NewMemFlash())

	buf := make([]byte, 4)
	require.Equal(t, 2, offset.Print(c, buf))
	require.Equal(t, "-3", string(buf[:2]))

	// "0.500000" does not fit in four bytes
	require.Equal(t, 4, ratio.Print(c, buf))
	require.Equal(t, "0.5", string(buf[:3]))
}

func TestDefinition_DefaultText(t *testing.T) {
	want := map[string]string{
		"Counter":  "0",
		"Offset":   "-3",
		"Enabled":  "true",
		"IntArray": "[1,2,3,4]",
		"Greeting": "hello",
	}
	for _, def := range testSchema.Definitions() {
		if text, ok := want[def.Name]; ok {
			require.Equal(t, text, def.DefaultText(), def.Name)
		}
	}
	require.Empty(t, Definition{Kind: KindInt32, Capacity: 2}.DefaultText())
}

func TestFormatElem(t *testing.T) {
	tests := []struct {
		kind Kind
		text string
	}{
		{KindBool, "true"},
		{KindInt8, "-128"},
		{KindInt16, "-1234"},
		{KindInt32, "-70000"},
		{KindInt64, "-9000000000"},
		{KindUint8, "255"},
		{KindUint16, "65535"},
		{KindUint32, "4000000000"},
		{KindUint64, "18446744073709551615"},
		{KindFloat32, "3.250000"},
		{KindFloat64, "-0.125000"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			raw, err := parseElem(tt.kind, tt.text)
			require.NoError(t, err)
			require.Len(t, raw, tt.kind.Size())
			require.Equal(t, tt.text, formatElem(tt.kind, raw))
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("UInt16")
	require.NoError(t, err)
	require.Equal(t, KindUint16, k)

	k, err = ParseKind("string")
	require.NoError(t, err)
	require.Equal(t, KindChar, k)

	_, err = ParseKind("invalid")
	require.Error(t, err)
	require.False(t, KindInvalid.Valid())
	require.Equal(t, "Kind(99)", Kind(99).String())
}

// =============================================================================
// NAME-INDEXED API
// =============================================================================

func TestSetText(t *testing.T) {
	c, _ := newController(t, nvs.NewMemFlash())

	require.NoError(t, c.SetText("Counter", "42"))
	require.Equal(t, uint8(42), counter.Get(c))
	require.ErrorIs(t, c.SetText("Counter", "42"), ErrNoChange)
	require.ErrorIs(t, c.SetText("Counter", "256"), ErrParse)
	require.ErrorIs(t, c.SetText("Counter", "abc"), ErrParse)

	require.NoError(t, c.SetText("Enabled", "false"))
	require.False(t, enabled.Get(c))

	require.NoError(t, c.SetText("Ratio", "2.5"))
	require.Equal(t, float32(2.5), ratio.Get(c))

	require.NoError(t, c.SetText("IntArray", "[10, 20, 30, 40]"))
	require.Equal(t, []int32{10, 20, 30, 40}, intArray.Get(c))
	require.ErrorIs(t, c.SetText("IntArray", "10,20,30,40"), ErrArrayNoChange)
	require.NoError(t, c.SetText("IntArray", "5"))
	require.Equal(t, []int32{5, 0, 0, 0}, intArray.Get(c))
	require.ErrorIs(t, c.SetText("IntArray", "1,2,3,4,5"), ErrSize)

	require.NoError(t, c.SetText("Greeting", "hey there"))
	require.Equal(t, "hey there", greeting.Get(c))
	require.ErrorIs(t, c.SetText("Greeting", "much longer than sixteen"), ErrSize)

	require.ErrorIs(t, c.SetText("Missing", "1"), ErrUnknownParam)
}

func TestSetText_AccessDenied(t *testing.T) {
	c, _ := newController(t, nvs.NewMemFlash())
	require.NoError(t, c.ChangeTier(2))

	require.ErrorIs(t, c.SetText("Counter", "1"), ErrAccessDenied)
	require.ErrorIs(t, c.SetText("Greeting", "x"), ErrAccessDenied)
	require.ErrorIs(t, c.SetText("IntArray", "1,2,3,4,5,6"), ErrAccessDenied)
}

func TestNameAPI(t *testing.T) {
	c, _ := newController(t, nvs.NewMemFlash())
	require.NoError(t, c.SetText("Offset", "7"))

	info, err := c.Info("Offset")
	require.NoError(t, err)
	require.Equal(t, Info{
		Name:        "Offset",
		Description: "Calibration offset",
		Tier:        1,
		Kind:        "int16",
		Value:       "7",
		Default:     "-3",
		Dirty:       true,
		IsDefault:   false,
		State:       "dirty-custom",
	}, info)

	buf := make([]byte, 16)
	n, err := c.PrintByName("Offset", buf)
	require.NoError(t, err)
	require.Equal(t, "7", string(buf[:n]))

	require.NoError(t, c.ResetByName("Offset"))
	require.ErrorIs(t, c.ResetByName("Offset"), ErrNoChange)
	require.ErrorIs(t, c.ResetByName("Nope"), ErrUnknownParam)

	_, err = c.Info("Nope")
	require.ErrorIs(t, err, ErrUnknownParam)
	_, err = c.Render("Nope")
	require.ErrorIs(t, err, ErrUnknownParam)
	_, ok := c.Lookup("Nope")
	require.False(t, ok)

	infos := c.Descriptors()
	require.Len(t, infos, testSchema.Len())
	require.Equal(t, "Counter", infos[0].Name)
	require.Equal(t, "Greeting", infos[len(infos)-1].Name)
	require.Equal(t, 16, infos[len(infos)-1].Capacity)
}
