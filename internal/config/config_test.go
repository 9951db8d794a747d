// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestConfig_Default tests that Default() returns a valid config with defaults.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("Expected default backend 'sqlite', got '%s'", cfg.Store.Backend)
	}
	if cfg.Store.Namespace != "param_storage" {
		t.Errorf("Expected default namespace 'param_storage', got '%s'", cfg.Store.Namespace)
	}
	if cfg.SaveInterval() != 30*time.Second {
		t.Errorf("Expected default save interval 30s, got %v", cfg.SaveInterval())
	}
	if cfg.Access.InitialTier != -1 {
		t.Errorf("Expected default initial tier -1, got %d", cfg.Access.InitialTier)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid default config", mutate: func(c *Config) {}},
		{name: "file backend", mutate: func(c *Config) { c.Store.Backend = BackendFile }},
		{name: "memory backend", mutate: func(c *Config) { c.Store.Backend = BackendMemory }},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "eeprom" }, wantErr: true},
		{name: "empty namespace", mutate: func(c *Config) { c.Store.Namespace = "" }, wantErr: true},
		{name: "namespace too long", mutate: func(c *Config) { c.Store.Namespace = "namespace_too_long" }, wantErr: true},
		{name: "namespace at limit", mutate: func(c *Config) { c.Store.Namespace = strings.Repeat("n", 15) }},
		{name: "zero save interval", mutate: func(c *Config) { c.Persist.SaveIntervalSecs = 0 }, wantErr: true},
		{name: "explicit tier", mutate: func(c *Config) { c.Access.InitialTier = 0 }},
		{name: "tier below -1", mutate: func(c *Config) { c.Access.InitialTier = -2 }, wantErr: true},
		{name: "invalid log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "invalid log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_ValidateCollectsAll tests that every problem is reported at once.
func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "eeprom"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Validate() error = %v, want ValidateErrors", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(verrs), verrs)
	}
	if verrs[0].Field != "store.backend" || verrs[1].Field != "log.format" {
		t.Errorf("unexpected fields: %v", verrs)
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("errors should be joined with '; ', got %q", err.Error())
	}
}

// TestConfig_LoadMissingDefault tests that a missing default file yields defaults.
func TestConfig_LoadMissingDefault(t *testing.T) {
	t.Setenv("PARAMSTORE_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("Expected default backend, got '%s'", cfg.Store.Backend)
	}
}

// TestConfig_LoadMissingExplicit tests that a named file must exist.
func TestConfig_LoadMissingExplicit(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want os.ErrNotExist", err)
	}
}

// TestConfig_LoadTOML tests loading a partial file over the defaults.
func TestConfig_LoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[store]
backend = "file"
path = "/var/lib/params.json"

[access]
initial_tier = 1

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendFile {
		t.Errorf("backend = %q, want file", cfg.Store.Backend)
	}
	if cfg.Store.Namespace != "param_storage" {
		t.Errorf("namespace should keep its default, got %q", cfg.Store.Namespace)
	}
	if cfg.Access.InitialTier != 1 {
		t.Errorf("initial_tier = %d, want 1", cfg.Access.InitialTier)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if !cfg.Persist.FlushOnClose {
		t.Error("flush_on_close should keep its default")
	}
}

// TestConfig_LoadRejectsUnknownKeys tests that typos are not silently ignored.
func TestConfig_LoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[store]\nbakend = \"file\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "store.bakend") {
		t.Errorf("Load() error = %v, want unknown key store.bakend", err)
	}
}

// TestConfig_LoadInvalid tests that validation runs after loading.
func TestConfig_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[store]\nbackend = \"eeprom\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Errorf("Load() error = %v, want ValidateErrors", err)
	}
}

// TestConfig_EnvOverrides tests PARAMSTORE_* variables.
func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PARAMSTORE_HOME", t.TempDir())
	t.Setenv("PARAMSTORE_BACKEND", "MEMORY")
	t.Setenv("PARAMSTORE_NAMESPACE", "bench")
	t.Setenv("PARAMSTORE_SAVE_INTERVAL", "5")
	t.Setenv("PARAMSTORE_TIER", "0")
	t.Setenv("PARAMSTORE_LOG_FORMAT", "json")
	t.Setenv("PARAMSTORE_SCHEMA", "/etc/params.toml")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Store.Backend)
	}
	if cfg.Store.Namespace != "bench" {
		t.Errorf("namespace = %q, want bench", cfg.Store.Namespace)
	}
	if cfg.SaveInterval() != 5*time.Second {
		t.Errorf("save interval = %v, want 5s", cfg.SaveInterval())
	}
	if cfg.Access.InitialTier != 0 {
		t.Errorf("initial tier = %d, want 0", cfg.Access.InitialTier)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q, want json", cfg.Log.Format)
	}
	if cfg.Schema.Path != "/etc/params.toml" {
		t.Errorf("schema path = %q", cfg.Schema.Path)
	}
}

// TestConfig_EnvOverrideIgnoresGarbage tests that bad numbers keep the old value.
func TestConfig_EnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("PARAMSTORE_TIER", "root")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Access.InitialTier != -1 {
		t.Errorf("initial tier = %d, want -1", cfg.Access.InitialTier)
	}
}

// TestConfig_SaveRoundTrip tests that SaveTOML output loads back unchanged.
func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Store.Backend = BackendFile
	cfg.Persist.SaveIntervalSecs = 10
	cfg.Access.InitialTier = 2
	cfg.Log.File = "/tmp/paramstore.log"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

// TestConfig_StorePath tests the default store location per backend.
func TestConfig_StorePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PARAMSTORE_HOME", home)

	cfg := Default()
	path, err := cfg.StorePath()
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(home, "params.db") {
		t.Errorf("sqlite path = %q", path)
	}

	cfg.Store.Backend = BackendFile
	path, _ = cfg.StorePath()
	if path != filepath.Join(home, "params.json") {
		t.Errorf("file path = %q", path)
	}

	cfg.Store.Path = "/data/custom.json"
	path, _ = cfg.StorePath()
	if path != "/data/custom.json" {
		t.Errorf("explicit path = %q", path)
	}
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("store.backend")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != BackendSQLite {
		t.Errorf("Get('store.backend') = %v, want 'sqlite'", val)
	}

	if err := cfg.Set("access.initial_tier", "2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Access.InitialTier != 2 {
		t.Errorf("initial_tier after Set = %d, want 2", cfg.Access.InitialTier)
	}

	if err := cfg.Set("persist.flush_on_close", "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Persist.FlushOnClose {
		t.Error("flush_on_close should be false after Set")
	}

	if err := cfg.Set("persist.save_interval_secs", 12); err != nil {
		t.Fatalf("Set() with int error = %v", err)
	}
	if cfg.Persist.SaveIntervalSecs != 12 {
		t.Errorf("save_interval_secs = %d, want 12", cfg.Persist.SaveIntervalSecs)
	}

	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}
	if _, err := cfg.Get("store"); err == nil {
		t.Error("Get() on a section should return error")
	}
	if err := cfg.Set("access.initial_tier", "high"); err == nil {
		t.Error("Set() with a non-integer should return error")
	}
}

// TestConfig_Keys tests that every listed key is addressable.
func TestConfig_Keys(t *testing.T) {
	cfg := Default()
	keys := Keys()
	if len(keys) != 10 {
		t.Errorf("got %d keys, want 10: %v", len(keys), keys)
	}
	for _, key := range keys {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error = %v", key, err)
		}
	}
	if keys[0] != "store.backend" {
		t.Errorf("first key = %q, want store.backend", keys[0])
	}
}

// TestConfig_Clone tests that Clone creates an independent copy.
func TestConfig_Clone(t *testing.T) {
	original := Default()
	clone := original.Clone()
	clone.Store.Backend = BackendMemory

	if original.Store.Backend != BackendSQLite {
		t.Error("Clone should create an independent copy")
	}
}

// TestWatch_ReloadsOnWrite tests that an edit to the file is delivered.
func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg *Config, err error) {
			if err == nil {
				changes <- cfg
			}
		})
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)

	edited := Default()
	edited.Access.InitialTier = 1
	if err := SaveTOML(edited, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.Access.InitialTier != 1 {
			t.Errorf("reloaded tier = %d, want 1", cfg.Access.InitialTier)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing the config file")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
