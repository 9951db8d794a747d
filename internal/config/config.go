// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/paramstore/internal/util"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the paramctl configuration.
type Config struct {
	Store   StoreConfig   `toml:"store" json:"store"`
	Persist PersistConfig `toml:"persist" json:"persist"`
	Access  AccessConfig  `toml:"access" json:"access"`
	Log     LogConfig     `toml:"log" json:"log"`
	Schema  SchemaConfig  `toml:"schema" json:"schema"`
}

// StoreConfig selects the blob store holding persisted parameters.
type StoreConfig struct {
	// Backend is one of "sqlite", "file" or "memory".
	Backend string `toml:"backend" json:"backend"`

	// Path is the database or image file. Empty means a file under ConfigDir.
	Path string `toml:"path" json:"path"`

	// Namespace groups the parameter blobs inside the store.
	Namespace string `toml:"namespace" json:"namespace"`
}

// PersistConfig controls background saving.
type PersistConfig struct {
	SaveIntervalSecs int  `toml:"save_interval_secs" json:"save_interval_secs"`
	FlushOnClose     bool `toml:"flush_on_close" json:"flush_on_close"`
}

// AccessConfig holds the starting access tier. -1 selects the least
// privileged tier of the schema.
type AccessConfig struct {
	InitialTier int `toml:"initial_tier" json:"initial_tier"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`   // debug, info, warn, error
	Format string `toml:"format" json:"format"` // text or json
	File   string `toml:"file" json:"file"`     // optional extra sink
}

// SchemaConfig points at an optional TOML parameter table. Empty means the
// built-in device table.
type SchemaConfig struct {
	Path string `toml:"path" json:"path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:   BackendSQLite,
			Namespace: "param_storage",
		},
		Persist: PersistConfig{
			SaveIntervalSecs: 30,
			FlushOnClose:     true,
		},
		Access: AccessConfig{
			InitialTier: -1,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// SaveInterval returns the periodic save interval.
func (c *Config) SaveInterval() time.Duration {
	return time.Duration(c.Persist.SaveIntervalSecs) * time.Second
}

// StorePath returns the configured store path, or the default file for the
// backend under ConfigDir.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if c.Store.Backend == BackendFile {
		return filepath.Join(dir, "params.json"), nil
	}
	return filepath.Join(dir, "params.db"), nil
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the paramstore configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PARAMSTORE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".paramstore"), nil
}

// ConfigPath returns the path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config file at path, or the default config file when path
// is empty. A missing default file yields the defaults. Environment
// overrides are applied last, then the result is validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg. Keys absent from the
// file keep their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return fillDefaults(cfg)
}

// fillDefaults fills in empty values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = defaults.Store.Backend
	}
	if cfg.Store.Namespace == "" {
		cfg.Store.Namespace = defaults.Store.Namespace
	}
	if cfg.Persist.SaveIntervalSecs == 0 {
		cfg.Persist.SaveIntervalSecs = defaults.Persist.SaveIntervalSecs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# paramstore configuration file")
	fmt.Fprintln(&buf, "# Generated by paramctl - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a list of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns ValidateErrors listing all
// problems found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch c.Store.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("must be one of sqlite, file, memory (got %q)", c.Store.Backend),
		})
	}
	if c.Store.Namespace == "" {
		errs = append(errs, ValidationError{Field: "store.namespace", Message: "must not be empty"})
	} else if len(c.Store.Namespace) > 15 {
		errs = append(errs, ValidationError{
			Field:   "store.namespace",
			Message: fmt.Sprintf("must be at most 15 bytes (got %d)", len(c.Store.Namespace)),
		})
	}

	if c.Persist.SaveIntervalSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "persist.save_interval_secs",
			Message: fmt.Sprintf("must be positive (got %d)", c.Persist.SaveIntervalSecs),
		})
	}

	if c.Access.InitialTier < -1 {
		errs = append(errs, ValidationError{
			Field:   "access.initial_tier",
			Message: fmt.Sprintf("must be -1 or a tier number (got %d)", c.Access.InitialTier),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("must be one of debug, info, warn, error (got %q)", c.Log.Level),
		})
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("must be text or json (got %q)", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - PARAMSTORE_BACKEND: overrides store.backend
//   - PARAMSTORE_STORE: overrides store.path
//   - PARAMSTORE_NAMESPACE: overrides store.namespace
//   - PARAMSTORE_SAVE_INTERVAL: overrides persist.save_interval_secs
//   - PARAMSTORE_TIER: overrides access.initial_tier
//   - PARAMSTORE_LOG_LEVEL, PARAMSTORE_LOG_FORMAT, PARAMSTORE_LOG_FILE
//   - PARAMSTORE_SCHEMA: overrides schema.path
//
// Unparseable numbers are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PARAMSTORE_BACKEND"); v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PARAMSTORE_STORE"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PARAMSTORE_NAMESPACE"); v != "" {
		c.Store.Namespace = v
	}
	if v := os.Getenv("PARAMSTORE_SAVE_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Persist.SaveIntervalSecs = n
		}
	}
	if v := os.Getenv("PARAMSTORE_TIER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Access.InitialTier = n
		}
	}
	if v := os.Getenv("PARAMSTORE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PARAMSTORE_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("PARAMSTORE_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("PARAMSTORE_SCHEMA"); v != "" {
		c.Schema.Path = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "store.backend").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case key segment to the Go field name.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dot notation, in declaration order.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := tomlName(section)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, prefix+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	if name == "" {
		return strings.ToLower(f.Name)
	}
	return name
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
