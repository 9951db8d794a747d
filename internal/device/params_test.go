// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package device

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/paramstore/internal/nvs"
	"github.com/jeranaias/paramstore/internal/param"
	"github.com/jeranaias/paramstore/internal/scheduler"
)

func TestSchema_Valid(t *testing.T) {
	require.NoError(t, Schema.Validate())
	require.Equal(t, 7, Schema.Len())
}

func TestSchema_Defaults(t *testing.T) {
	c, err := param.New(Schema, nvs.NewMemFlash(), scheduler.NewManual())
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	defer c.Close(context.Background())

	require.Equal(t, TierUser, c.CurrentTier())
	require.Equal(t, uint8(0), ExampleCounter.Get(c))
	require.Equal(t, "Hello, world!", ExampleString.Get(c))
	require.Equal(t, []int32{1, 2, 3, 4}, ExampleIntArray.Get(c))
	require.Equal(t, []float32{1, 1, 1}, Calibration.Get(c))
	require.True(t, WifiEnabled.Get(c))

	// Everything is dirty until first saved
	require.Equal(t, Schema.Len(), c.DirtyCount())
	require.Equal(t, Schema.Len(), c.SaveDirty())
}

func TestSchema_UserTierLimits(t *testing.T) {
	c, err := param.New(Schema, nvs.NewMemFlash(), scheduler.NewManual())
	require.NoError(t, err)

	require.NoError(t, Brightness.Set(c, 10))
	require.ErrorIs(t, TempOffset.Set(c, 5), param.ErrAccessDenied)
	require.ErrorIs(t, ExampleIntArray.Set(c, []int32{4, 3, 2, 1}), param.ErrAccessDenied)
}
