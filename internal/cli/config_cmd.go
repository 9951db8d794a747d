// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/paramstore/internal/config"
)

const configUsage = "paramctl config [show|get KEY|set KEY VALUE|keys|path|init [--force]]"

// ConfigValue is one key in JSON output.
type ConfigValue struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// handleConfig handles the "config" command.
func (a *App) handleConfig() error {
	p := NewArgParser(a.Args.Raw, "force")

	switch sub := p.Subcommand(); sub {
	case "", "show":
		return a.configShow()
	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("config get", "key", "paramctl config get store.backend")
		}
		return a.configGet(key)
	case "set":
		if p.PositionalCount() < 3 {
			return ErrMissingArgument("config set", "key and value", "paramctl config set persist.save_interval_secs 10")
		}
		return a.configSet(p.Positional(1), p.Positional(2))
	case "keys":
		if a.Args.JSON {
			return NewJSONResponse("config", config.Keys()).Print(a.Out)
		}
		for _, key := range config.Keys() {
			fmt.Fprintln(a.Out, key)
		}
		return nil
	case "path":
		path, err := a.configPath()
		if err != nil {
			return err
		}
		if a.Args.JSON {
			return NewJSONResponse("config", ConfigValue{Key: "path", Value: path}).Print(a.Out)
		}
		fmt.Fprintln(a.Out, path)
		return nil
	case "init":
		return a.configInit(p.BoolFlag("force"))
	default:
		return ErrUnknownSubcommand("config", sub, configUsage)
	}
}

// configPath returns --config or the default config file.
func (a *App) configPath() (string, error) {
	if a.Args.ConfigPath != "" {
		return a.Args.ConfigPath, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return path, nil
}

// configShow prints the effective configuration, environment included.
func (a *App) configShow() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if a.Args.JSON {
		return NewJSONResponse("config", cfg).Print(a.Out)
	}

	path, _ := a.configPath()
	fmt.Fprintln(a.Out, TitleStyle.Render("Configuration"), DimStyle.Render("("+path+")"))
	for _, key := range config.Keys() {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "  %-28s %s\n", key, ValueStyle.Render(fmt.Sprint(v)))
	}
	return nil
}

func (a *App) configGet(key string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	v, err := cfg.Get(key)
	if err != nil {
		return &UsageError{Command: "config get", Reason: err.Error(), Example: "paramctl config keys"}
	}
	if a.Args.JSON {
		return NewJSONResponse("config", ConfigValue{Key: key, Value: v}).Print(a.Out)
	}
	fmt.Fprintln(a.Out, v)
	return nil
}

// configSet changes one key in the config file. Only the file is read, so
// environment overrides never leak into it.
func (a *App) configSet(key, value string) error {
	path, err := a.configPath()
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Command: "config set", Reason: err.Error(), Example: "paramctl config keys"}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	v, _ := cfg.Get(key)
	if a.Args.JSON {
		return NewJSONResponse("config", ConfigValue{Key: key, Value: v}).Print(a.Out)
	}
	fmt.Fprintf(a.Out, "%s %s = %v\n", RenderResult(true), key, v)
	return nil
}

// configInit writes a default config file.
func (a *App) configInit(force bool) error {
	path, err := a.configPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return &UsageError{
			Command: "config init",
			Reason:  fmt.Sprintf("%s already exists", path),
			Example: "paramctl config init --force",
		}
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if a.Args.JSON {
		return NewJSONResponse("config", ConfigValue{Key: "path", Value: path}).Print(a.Out)
	}
	fmt.Fprintf(a.Out, "%s wrote %s\n", RenderResult(true), path)
	return nil
}
