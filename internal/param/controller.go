// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package param

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/paramstore/internal/gate"
	"github.com/jeranaias/paramstore/internal/nvs"
	"github.com/jeranaias/paramstore/internal/scheduler"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultNamespace is the blob store namespace holding every parameter.
	DefaultNamespace = "param_storage"

	// DefaultSaveInterval is the cadence of the periodic save job.
	DefaultSaveInterval = 30 * time.Second

	// SaveJobName names the periodic save job in the scheduler.
	SaveJobName = "g_param_save"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the runtime values of every parameter in a schema.
//
// One mutex guards all descriptor state. Every accessor call and every full
// save pass holds it from start to end, so a save never observes a half
// written value and never clears the dirty flag of a write it did not store.
type Controller struct {
	mu     sync.Mutex
	schema *Schema
	defs   []Definition
	descs  []*descriptor
	byName map[string]int

	gate  *gate.Gate
	flash nvs.Flash
	sched scheduler.Scheduler
	job   scheduler.Job

	namespace    string
	interval     time.Duration
	flushOnClose bool
	initialized  bool

	logger *slog.Logger
	errLog rate.Sometimes // throttles repeated storage error logs
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	namespace    string
	interval     time.Duration
	logger       *slog.Logger
	initialTier  int
	flushOnClose bool
}

// WithNamespace sets the blob store namespace. Default "param_storage".
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithSaveInterval sets the periodic save cadence. Default 30s.
func WithSaveInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInitialTier starts the access gate at tier. Negative keeps the
// default, the least privileged tier.
func WithInitialTier(tier int) Option {
	return func(o *options) { o.initialTier = tier }
}

// WithFlushOnClose makes Close run a final save pass.
func WithFlushOnClose(flush bool) Option {
	return func(o *options) { o.flushOnClose = flush }
}

// New validates schema and builds a controller holding default values.
// Nothing is read from flash until Init.
func New(schema *Schema, flash nvs.Flash, sched scheduler.Scheduler, opts ...Option) (*Controller, error) {
	if schema == nil || flash == nil || sched == nil {
		return nil, fmt.Errorf("%w: schema, flash and scheduler are required", ErrInvalidArgument)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	o := options{
		namespace:   DefaultNamespace,
		interval:    DefaultSaveInterval,
		logger:      slog.Default(),
		initialTier: -1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := nvs.ValidateName(o.namespace); err != nil {
		return nil, fmt.Errorf("%w: namespace: %w", ErrInvalidArgument, err)
	}
	if o.interval <= 0 {
		return nil, fmt.Errorf("%w: save interval must be positive", ErrInvalidArgument)
	}

	g, err := gate.New(schema.Tiers(), gate.WithLogger(o.logger), gate.WithInitialTier(o.initialTier))
	if err != nil {
		return nil, err
	}

	c := &Controller{
		schema:       schema,
		defs:         schema.Definitions(),
		byName:       make(map[string]int, schema.Len()),
		gate:         g,
		flash:        flash,
		sched:        sched,
		namespace:    o.namespace,
		interval:     o.interval,
		flushOnClose: o.flushOnClose,
		logger:       o.logger,
		errLog:       rate.Sometimes{First: 3, Interval: time.Minute},
	}
	c.descs = make([]*descriptor, len(c.defs))
	for i := range c.defs {
		c.descs[i] = newDescriptor(&c.defs[i])
		c.byName[c.defs[i].Name] = i
	}
	return c, nil
}

// Schema returns the schema the controller was built from.
func (c *Controller) Schema() *Schema {
	return c.schema
}

// Namespace returns the blob store namespace.
func (c *Controller) Namespace() string {
	return c.namespace
}

// =============================================================================
// ACCESS GATE
// =============================================================================

// Gate returns the access gate.
func (c *Controller) Gate() *gate.Gate {
	return c.gate
}

// CurrentTier returns the current access tier.
func (c *Controller) CurrentTier() int {
	return c.gate.CurrentTier()
}

// ChangeTier moves the access gate to tier. Returns ErrInvalidArgument for
// a tier outside the table.
func (c *Controller) ChangeTier(tier int) error {
	return c.gate.ChangeTier(tier)
}

// =============================================================================
// LOOKUP
// =============================================================================

// Lookup returns the definition of the named parameter.
func (c *Controller) Lookup(name string) (Definition, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Definition{}, false
	}
	def := c.defs[idx]
	def.Default = append([]byte(nil), def.Default...)
	return def, true
}

// Descriptors returns a snapshot of every parameter in schema order.
func (c *Controller) Descriptors() []Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Info, len(c.descs))
	for i, d := range c.descs {
		out[i] = d.info()
	}
	return out
}

// Info returns a snapshot of the named parameter.
func (c *Controller) Info(name string) (Info, error) {
	idx, err := c.index(name)
	if err != nil {
		return Info{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.descs[idx].info(), nil
}

// DirtyCount returns how many parameters hold unsaved values.
func (c *Controller) DirtyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirtyLocked()
}

func (c *Controller) dirtyLocked() int {
	n := 0
	for _, d := range c.descs {
		if d.dirty {
			n++
		}
	}
	return n
}

func (c *Controller) index(name string) (int, error) {
	idx, ok := c.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	return idx, nil
}
