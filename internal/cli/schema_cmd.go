// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jeranaias/paramstore/internal/gate"
	"github.com/jeranaias/paramstore/internal/param"
	"github.com/jeranaias/paramstore/internal/util"
)

const schemaUsage = "paramctl schema [check FILE]"

// maxDescriptionWidth caps the description column of the schema table.
const maxDescriptionWidth = 48

// SchemaEntry is one declared parameter in JSON output.
type SchemaEntry struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Capacity    int    `json:"capacity,omitempty"`
	Tier        int    `json:"tier"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

// SchemaData is the JSON body of the schema command.
type SchemaData struct {
	Source string        `json:"source"`
	Levels []gate.Level  `json:"levels"`
	Params []SchemaEntry `json:"params"`
}

// handleSchema handles the "schema" command: print the configured table,
// or validate a TOML table with "schema check FILE".
func (a *App) handleSchema() error {
	p := NewArgParser(a.Args.Raw)
	switch sub := p.Subcommand(); sub {
	case "":
		cfg, err := a.loadConfig()
		if err != nil {
			return err
		}
		schema, err := loadSchema(cfg)
		if err != nil {
			return err
		}
		source := cfg.Schema.Path
		if source == "" {
			source = "built-in device table"
		}
		return writeSchema(a.Out, source, schema, a.Args.JSON)

	case "check", "validate":
		path := p.Positional(1)
		if path == "" {
			return ErrMissingArgument("schema check", "schema file", "paramctl schema check FILE")
		}
		schema, err := param.LoadSchemaTOML(path)
		if err != nil {
			return err
		}
		if a.Args.JSON {
			return writeSchema(a.Out, path, schema, true)
		}
		fmt.Fprintf(a.Out, "%s %s: %d levels, %d parameters\n",
			RenderResult(true), path, len(schema.Tiers()), schema.Len())
		return nil
	default:
		return ErrUnknownSubcommand("schema", sub, schemaUsage)
	}
}

func writeSchema(w io.Writer, source string, schema *param.Schema, jsonMode bool) error {
	data := SchemaData{Source: source, Levels: schema.Tiers()}
	for _, def := range schema.Definitions() {
		data.Params = append(data.Params, SchemaEntry{
			Name:        def.Name,
			Kind:        def.Kind.String(),
			Capacity:    def.Capacity,
			Tier:        def.Tier,
			Default:     def.DefaultText(),
			Description: def.Description,
		})
	}
	if jsonMode {
		return NewJSONResponse("schema", data).Print(w)
	}

	fmt.Fprintln(w, TitleStyle.Render("Parameter table"), DimStyle.Render("("+source+")"))
	levels := make([]string, len(data.Levels))
	for i, l := range data.Levels {
		levels[i] = fmt.Sprintf("%d=%s", l.Tier, l.Description)
	}
	fmt.Fprintf(w, "%s%s\n\n", RenderLabel("Tiers"), ValueStyle.Render(strings.Join(levels, " ")))

	t := &table{headers: []string{"NAME", "TIER", "KIND", "DEFAULT", "DESCRIPTION"}}
	for _, e := range data.Params {
		t.add(
			e.Name,
			strconv.Itoa(e.Tier),
			kindLabel(param.Info{Kind: e.Kind, Capacity: e.Capacity}),
			util.TruncateRunes(e.Default, maxValueWidth),
			util.TruncateRunes(e.Description, maxDescriptionWidth),
		)
	}
	t.render(w)
	return nil
}
