// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jeranaias/paramstore/internal/gate"
	"github.com/jeranaias/paramstore/internal/param"
	"github.com/jeranaias/paramstore/internal/util"
)

// maxValueWidth caps the value column of the list table.
const maxValueWidth = 40

// =============================================================================
// ONE-SHOT COMMANDS
// =============================================================================

// handleList handles the "list" command.
func (a *App) handleList(ctx context.Context) error {
	return a.withSession(ctx, sessionOptions{flushOnClose: flushOnClose(false)}, func(s *Session) error {
		return writeList(a.Out, s.Ctl, a.Args.JSON)
	})
}

// handleGet handles the "get" command.
func (a *App) handleGet(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "info")
	name := p.Subcommand()
	if name == "" {
		return ErrMissingArgument("get", "parameter name", "paramctl get NAME [--info]")
	}
	return a.withSession(ctx, sessionOptions{flushOnClose: flushOnClose(false)}, func(s *Session) error {
		return writeParam(a.Out, s.Ctl, name, p.BoolFlag("info"), a.Args.JSON)
	})
}

// handleSet handles the "set" command. One-shot sets always flush so the
// change outlives the process.
func (a *App) handleSet(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw)
	if p.PositionalCount() < 2 {
		return ErrMissingArgument("set", "parameter name and value", "paramctl set NAME VALUE...")
	}
	return a.withSession(ctx, sessionOptions{flushOnClose: flushOnClose(true)}, func(s *Session) error {
		return applySet(a.Out, s.Ctl, p.Subcommand(), p.PositionalFrom(1), a.Args.JSON)
	})
}

// handleReset handles the "reset" command.
func (a *App) handleReset(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "all")
	names := p.PositionalFrom(0)
	all := p.BoolFlag("all")
	if !all && len(names) == 0 {
		return ErrMissingArgument("reset", "parameter name or --all", "paramctl reset NAME... | --all")
	}
	return a.withSession(ctx, sessionOptions{flushOnClose: flushOnClose(true)}, func(s *Session) error {
		if all {
			names = nil
		}
		return applyReset(a.Out, s.Ctl, names, a.Args.JSON)
	})
}

// handleFlush handles the "flush" command: load, save everything dirty,
// report what remains.
func (a *App) handleFlush(ctx context.Context) error {
	return a.withSession(ctx, sessionOptions{flushOnClose: flushOnClose(false)}, func(s *Session) error {
		return writeFlush(a.Out, s.Ctl, a.Args.JSON)
	})
}

// handleTier handles the "tier" command. The tier table needs no store.
func (a *App) handleTier() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	schema, err := loadSchema(cfg)
	if err != nil {
		return err
	}
	tier, err := resolveTier(a.Args.Tier, cfg.Access.InitialTier, schema.Tiers())
	if err != nil {
		return err
	}
	g, err := gate.New(schema.Tiers(), gate.WithInitialTier(tier))
	if err != nil {
		return err
	}
	return writeTiers(a.Out, g, schema, a.Args.JSON)
}

// =============================================================================
// SHARED OPERATIONS (one-shot commands and the shell)
// =============================================================================

func writeList(w io.Writer, ctl *param.Controller, jsonMode bool) error {
	infos := ctl.Descriptors()
	if jsonMode {
		return NewJSONResponse("list", infos).Print(w)
	}

	t := &table{headers: []string{"NAME", "TIER", "KIND", "VALUE", "STATE"}}
	for _, info := range infos {
		t.add(
			info.Name,
			strconv.Itoa(info.Tier),
			kindLabel(info),
			util.TruncateRunes(displayValue(info), maxValueWidth),
			RenderState(info.State),
		)
	}
	t.render(w)

	if n := ctl.DirtyCount(); n > 0 {
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d unsaved", n)))
	}
	return nil
}

func writeParam(w io.Writer, ctl *param.Controller, name string, detail, jsonMode bool) error {
	info, err := ctl.Info(name)
	if err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("get", info).Print(w)
	}
	if !detail {
		fmt.Fprintln(w, info.Value)
		return nil
	}

	rows := [][2]string{
		{"Name", info.Name},
		{"Description", info.Description},
		{"Kind", kindLabel(info)},
		{"Tier", fmt.Sprintf("%d (%s)", info.Tier, ctl.Gate().Describe(info.Tier))},
		{"Value", displayValue(info)},
		{"Default", info.Default},
		{"State", RenderState(info.State)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s\n", RenderLabel(row[0]), ValueStyle.Render(row[1]))
	}
	return nil
}

// applySet parses values for the named parameter and sets it. Several
// values for an array are taken as its elements; for text they are joined
// with spaces. An unchanged value is reported, not returned as an error.
func applySet(w io.Writer, ctl *param.Controller, name string, values []string, jsonMode bool) error {
	def, ok := ctl.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", param.ErrUnknownParam, name)
	}
	sep := " "
	if def.IsArray() && !def.IsText() {
		sep = ","
	}

	err := ctl.SetText(name, strings.Join(values, sep))
	if err != nil && !errors.Is(err, param.ErrNoChange) {
		return err
	}
	return writeResult(w, "set", ctl, name, err == nil, jsonMode)
}

// applyReset restores defaults for names, or for every parameter when
// names is empty.
func applyReset(w io.Writer, ctl *param.Controller, names []string, jsonMode bool) error {
	if len(names) == 0 {
		for _, info := range ctl.Descriptors() {
			names = append(names, info.Name)
		}
	}

	results := make([]SetResult, 0, len(names))
	for _, name := range names {
		err := ctl.ResetByName(name)
		if err != nil && !errors.Is(err, param.ErrNoChange) {
			return err
		}
		res, ierr := result(ctl, name, err == nil)
		if ierr != nil {
			return ierr
		}
		results = append(results, res)
	}

	if jsonMode {
		return NewJSONResponse("reset", results).Print(w)
	}
	for _, res := range results {
		fmt.Fprintf(w, "%s %s = %s (%s)\n", RenderResult(res.Changed), res.Name, res.Value, RenderState(res.State))
	}
	return nil
}

func writeResult(w io.Writer, command string, ctl *param.Controller, name string, changed, jsonMode bool) error {
	res, err := result(ctl, name, changed)
	if err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse(command, res).Print(w)
	}
	fmt.Fprintf(w, "%s %s = %s (%s)\n", RenderResult(changed), name, res.Value, RenderState(res.State))
	return nil
}

func result(ctl *param.Controller, name string, changed bool) (SetResult, error) {
	info, err := ctl.Info(name)
	if err != nil {
		return SetResult{}, err
	}
	return SetResult{Name: name, Value: info.Value, Changed: changed, State: info.State}, nil
}

func writeFlush(w io.Writer, ctl *param.Controller, jsonMode bool) error {
	res := FlushResult{Saved: ctl.SaveDirty()}
	res.Remaining = ctl.DirtyCount()
	if jsonMode {
		return NewJSONResponse("flush", res).Print(w)
	}
	fmt.Fprintf(w, "%s saved %d parameters", RenderResult(res.Saved > 0), res.Saved)
	if res.Remaining > 0 {
		fmt.Fprintf(w, ", %s", WarningStyle.Render(fmt.Sprintf("%d still unsaved", res.Remaining)))
	}
	fmt.Fprintln(w)
	if res.Remaining > 0 {
		return fmt.Errorf("%w: %d parameters not saved", param.ErrStorageFailure, res.Remaining)
	}
	return nil
}

func writeTiers(w io.Writer, g *gate.Gate, schema *param.Schema, jsonMode bool) error {
	counts := make(map[int]int)
	for _, def := range schema.Definitions() {
		counts[def.Tier]++
	}

	data := TierData{Current: g.CurrentTier()}
	for _, l := range g.Levels() {
		data.Levels = append(data.Levels, TierLevel{Tier: l.Tier, Description: l.Description, Params: counts[l.Tier]})
	}
	if jsonMode {
		return NewJSONResponse("tier", data).Print(w)
	}

	t := &table{headers: []string{"", "TIER", "LEVEL", "PARAMS"}}
	for _, l := range data.Levels {
		marker := " "
		if l.Tier == data.Current {
			marker = SuccessStyle.Render("*")
		}
		t.add(marker, strconv.Itoa(l.Tier), l.Description, strconv.Itoa(l.Params))
	}
	t.render(w)
	fmt.Fprintln(w, DimStyle.Render("Tier 0 is the most privileged; a parameter can be changed at its tier or below."))
	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

func kindLabel(info param.Info) string {
	switch {
	case info.Kind == "char":
		return fmt.Sprintf("text(%d)", info.Capacity)
	case info.Capacity > 0:
		return fmt.Sprintf("%s[%d]", info.Kind, info.Capacity)
	}
	return info.Kind
}

func displayValue(info param.Info) string {
	if info.Kind == "char" {
		return strconv.Quote(info.Value)
	}
	return info.Value
}
