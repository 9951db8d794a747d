// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/jeranaias/paramstore/internal/config"
	"github.com/jeranaias/paramstore/internal/device"
	"github.com/jeranaias/paramstore/internal/gate"
	"github.com/jeranaias/paramstore/internal/logging"
	"github.com/jeranaias/paramstore/internal/nvs"
	"github.com/jeranaias/paramstore/internal/param"
	"github.com/jeranaias/paramstore/internal/scheduler"
)

// closeTimeout bounds the final save when a command finishes.
const closeTimeout = 5 * time.Second

// =============================================================================
// SESSION
// =============================================================================

// Session is an initialized controller together with the store, logger and
// config it was built from.
type Session struct {
	Config *config.Config
	Logger *slog.Logger
	Ctl    *param.Controller

	flash    nvs.Flash
	closeLog func() error
}

// sessionOptions tunes openSession for one command.
type sessionOptions struct {
	schema       *param.Schema       // nil loads the configured table
	sched        scheduler.Scheduler // nil uses a manual scheduler
	flushOnClose *bool               // nil uses the config
}

// loadConfig loads the configuration named by --config and applies
// command-line overrides.
func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.Args.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if a.Args.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// openSession loads config, builds the logger, store and controller, and
// runs Init. On error everything opened so far is released.
func (a *App) openSession(ctx context.Context, opts sessionOptions) (*Session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(cfg.Log, a.Err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	schema := opts.schema
	if schema == nil {
		if schema, err = loadSchema(cfg); err != nil {
			closeLog()
			return nil, err
		}
	}
	tier, err := resolveTier(a.Args.Tier, cfg.Access.InitialTier, schema.Tiers())
	if err != nil {
		closeLog()
		return nil, err
	}

	flash, err := openFlash(cfg, logger)
	if err != nil {
		closeLog()
		return nil, err
	}

	sched := opts.sched
	if sched == nil {
		sched = scheduler.NewManual()
	}
	flush := cfg.Persist.FlushOnClose
	if opts.flushOnClose != nil {
		flush = *opts.flushOnClose
	}

	ctl, err := param.New(schema, flash, sched,
		param.WithNamespace(cfg.Store.Namespace),
		param.WithSaveInterval(cfg.SaveInterval()),
		param.WithLogger(logger),
		param.WithInitialTier(tier),
		param.WithFlushOnClose(flush),
	)
	if err == nil {
		err = ctl.Init(ctx)
	}
	if err != nil {
		closeFlash(flash)
		closeLog()
		return nil, err
	}

	return &Session{
		Config:   cfg,
		Logger:   logger,
		Ctl:      ctl,
		flash:    flash,
		closeLog: closeLog,
	}, nil
}

// Close stops the controller, running its final save, then releases the
// store and the log file. All failures are reported together.
func (s *Session) Close(ctx context.Context) error {
	var result *multierror.Error
	if err := s.Ctl.Close(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := closeFlash(s.flash); err != nil {
		result = multierror.Append(result, fmt.Errorf("close store: %w", err))
	}
	if err := s.closeLog(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close log: %w", err))
	}
	return result.ErrorOrNil()
}

// withSession runs fn on a fresh session and closes it afterwards. A close
// failure is returned when fn itself succeeded.
func (a *App) withSession(ctx context.Context, opts sessionOptions, fn func(*Session) error) (err error) {
	s, err := a.openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := s.Close(closeCtx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func flushOnClose(v bool) *bool {
	return &v
}

// =============================================================================
// BUILDERS
// =============================================================================

// loadSchema returns the TOML table named in the config, or the built-in
// device table.
func loadSchema(cfg *config.Config) (*param.Schema, error) {
	if cfg.Schema.Path == "" {
		return device.Schema, nil
	}
	schema, err := param.LoadSchemaTOML(cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: schema %s: %w", ErrConfig, cfg.Schema.Path, err)
	}
	return schema, nil
}

// openFlash builds the configured blob store. Nothing is opened until the
// controller initializes it.
func openFlash(cfg *config.Config, logger *slog.Logger) (nvs.Flash, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return nvs.NewMemFlash(), nil
	case config.BackendFile, config.BackendSQLite:
		path, err := cfg.StorePath()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		logger.Debug("using blob store", "backend", cfg.Store.Backend, "path", path)
		if cfg.Store.Backend == config.BackendFile {
			return nvs.NewFileFlash(path, logger), nil
		}
		return nvs.NewSQLiteFlash(path, nvs.WithSQLiteLogger(logger)), nil
	}
	return nil, fmt.Errorf("%w: unknown store backend %q", ErrConfig, cfg.Store.Backend)
}

func closeFlash(flash nvs.Flash) error {
	if c, ok := flash.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// resolveTier picks the starting tier: the --tier flag if given, else the
// configured one. The flag takes a number or a level description.
func resolveTier(flag string, configured int, levels []gate.Level) (int, error) {
	if flag == "" {
		return configured, nil
	}
	if n, err := strconv.Atoi(flag); err == nil {
		return n, nil
	}
	for _, l := range levels {
		if strings.EqualFold(l.Description, flag) {
			return l.Tier, nil
		}
	}
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = strings.ToLower(l.Description)
	}
	return 0, &UsageError{
		Reason:  fmt.Sprintf("unknown tier %q", flag),
		Example: "--tier 0 or --tier " + strings.Join(names, "|"),
	}
}
