// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jeranaias/paramstore/internal/device"
	"github.com/jeranaias/paramstore/internal/param"
)

// demoUsage lists the walkthroughs.
const demoUsage = "paramctl demo basic|array|string"

// handleDemo handles the "demo" command. Walkthroughs always run against
// the built-in device table at the factory tier, and their changes are
// saved like any other.
func (a *App) handleDemo(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw)
	name := p.Subcommand()
	if name == "" {
		name = "basic"
	}

	var run func(io.Writer, *param.Controller) error
	switch strings.ToLower(name) {
	case "basic":
		run = demoBasic
	case "array":
		run = demoArray
	case "string", "text":
		run = demoString
	default:
		return ErrUnknownSubcommand("demo", name, demoUsage)
	}

	opts := sessionOptions{schema: device.Schema, flushOnClose: flushOnClose(true)}
	return a.withSession(ctx, opts, func(s *Session) error {
		if err := s.Ctl.ChangeTier(device.TierFactory); err != nil {
			return err
		}
		return run(a.Out, s.Ctl)
	})
}

// demoStep prints one numbered line of a walkthrough.
func demoStep(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", DimStyle.Render("-"), fmt.Sprintf(format, args...))
}

// demoBasic bumps the counter and rewrites the string, the way firmware
// code would on every boot.
func demoBasic(w io.Writer, ctl *param.Controller) error {
	fmt.Fprintln(w, TitleStyle.Render("Basic parameters"))

	count := device.ExampleCounter.Get(ctl)
	demoStep(w, "ExampleCounter = %d", count)
	if err := device.ExampleCounter.Set(ctl, count+1); err != nil {
		return err
	}
	demoStep(w, "ExampleCounter -> %d (%s)", device.ExampleCounter.Get(ctl), device.ExampleCounter.State(ctl))

	demoStep(w, "ExampleString = %q", device.ExampleString.Get(ctl))
	err := device.ExampleString.Set(ctl, "Hello from paramctl")
	switch {
	case errors.Is(err, param.ErrNoChange):
		demoStep(w, "ExampleString already set, nothing to save")
	case err != nil:
		return err
	default:
		demoStep(w, "ExampleString -> %q (%s)", device.ExampleString.Get(ctl), device.ExampleString.State(ctl))
	}

	fmt.Fprintln(w, RenderResult(true), fmt.Sprintf("%d parameters will be saved on exit", ctl.DirtyCount()))
	return nil
}

// demoArray walks through whole-array set, copy and reset.
func demoArray(w io.Writer, ctl *param.Controller) error {
	fmt.Fprintln(w, TitleStyle.Render("Array parameters"))

	p := device.ExampleIntArray
	demoStep(w, "ExampleIntArray = %s", p.Render(ctl))

	want := []int32{99, 88, 77, 66}
	if err := p.Set(ctl, want); err != nil && !errors.Is(err, param.ErrArrayNoChange) {
		return err
	}
	demoStep(w, "ExampleIntArray -> %s (%s)", p.Render(ctl), p.State(ctl))

	buf := make([]int32, p.Cap())
	if err := p.Copy(ctl, buf); err != nil {
		return err
	}
	if !slices.Equal(buf, want) {
		return fmt.Errorf("copy returned %v, want %v", buf, want)
	}
	demoStep(w, "copy matches %v", buf)

	if err := p.Copy(ctl, make([]int32, p.Cap()-1)); errors.Is(err, param.ErrSize) {
		demoStep(w, "copy into a short buffer refused: %v", err)
	}

	if err := p.Reset(ctl); err != nil && !errors.Is(err, param.ErrNoChange) {
		return err
	}
	demoStep(w, "reset -> %s (%s)", p.Render(ctl), p.State(ctl))

	fmt.Fprintln(w, RenderResult(true), "array walkthrough complete")
	return nil
}

// demoString shows text capacity handling.
func demoString(w io.Writer, ctl *param.Controller) error {
	fmt.Fprintln(w, TitleStyle.Render("Text parameters"))

	p := device.ExampleString
	demoStep(w, "ExampleString holds up to %d bytes, now %q", p.Cap(), p.Get(ctl))

	long := strings.Repeat("x", p.Cap()+1)
	if err := p.Set(ctl, long); errors.Is(err, param.ErrSize) {
		demoStep(w, "%d-byte value refused: %v", len(long), err)
	} else if err != nil {
		return err
	}

	if err := p.Set(ctl, "short"); err != nil && !errors.Is(err, param.ErrNoChange) {
		return err
	}
	buf := make([]byte, p.Cap())
	if err := p.Copy(ctl, buf); err != nil {
		return err
	}
	demoStep(w, "set %q, raw buffer %d bytes, NUL padded: %v", p.Get(ctl), len(buf), buf[len("short")] == 0)

	if err := p.Reset(ctl); err != nil && !errors.Is(err, param.ErrNoChange) {
		return err
	}
	demoStep(w, "reset -> %q (%s)", p.Get(ctl), p.State(ctl))

	fmt.Fprintln(w, RenderResult(true), "text walkthrough complete")
	return nil
}
