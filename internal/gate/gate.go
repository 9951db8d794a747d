// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gate

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidArgument is returned for a tier outside the declared table.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidLevels is returned by New for a malformed tier table.
	ErrInvalidLevels = errors.New("invalid tier table")
)

// =============================================================================
// TYPES
// =============================================================================

// Level is one entry of the tier table.
type Level struct {
	Tier        int    `toml:"tier" json:"tier"`
	Description string `toml:"description" json:"description"`
}

// Gate holds the current access tier.
type Gate struct {
	mu      sync.RWMutex
	levels  []Level
	current int
	logger  *slog.Logger
}

// Option configures a Gate.
type Option func(*gateConfig)

type gateConfig struct {
	logger  *slog.Logger
	initial int
	hasInit bool
}

// WithLogger sets the logger used to report tier changes.
func WithLogger(logger *slog.Logger) Option {
	return func(c *gateConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInitialTier starts the gate at tier instead of the least privileged
// level. A negative tier keeps the default.
func WithInitialTier(tier int) Option {
	return func(c *gateConfig) {
		if tier >= 0 {
			c.initial = tier
			c.hasInit = true
		}
	}
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// ValidateLevels checks that levels are unique, contiguous and start at 0.
// Every problem found is reported.
func ValidateLevels(levels []Level) error {
	var result *multierror.Error
	if len(levels) == 0 {
		return fmt.Errorf("%w: no levels declared", ErrInvalidLevels)
	}

	seen := make(map[int]bool, len(levels))
	for _, l := range levels {
		if l.Tier < 0 {
			result = multierror.Append(result, fmt.Errorf("%w: tier %d is negative", ErrInvalidLevels, l.Tier))
			continue
		}
		if seen[l.Tier] {
			result = multierror.Append(result, fmt.Errorf("%w: tier %d declared twice", ErrInvalidLevels, l.Tier))
		}
		seen[l.Tier] = true
	}
	for tier := 0; tier < len(seen); tier++ {
		if !seen[tier] {
			result = multierror.Append(result, fmt.Errorf("%w: tier %d missing", ErrInvalidLevels, tier))
		}
	}
	return result.ErrorOrNil()
}

// New creates a gate over levels. The levels may be given in any order.
func New(levels []Level, opts ...Option) (*Gate, error) {
	if err := ValidateLevels(levels); err != nil {
		return nil, err
	}

	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tier < sorted[j].Tier })

	cfg := gateConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	g := &Gate{
		levels:  sorted,
		current: len(sorted) - 1,
		logger:  cfg.logger,
	}
	if cfg.hasInit {
		if cfg.initial > g.maxTier() {
			return nil, fmt.Errorf("%w: initial tier %d, max %d", ErrInvalidArgument, cfg.initial, g.maxTier())
		}
		g.current = cfg.initial
	}
	return g, nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// CurrentTier returns the current access tier.
func (g *Gate) CurrentTier() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}

// MaxTier returns the least privileged tier.
func (g *Gate) MaxTier() int {
	return g.maxTier()
}

func (g *Gate) maxTier() int {
	return len(g.levels) - 1
}

// Levels returns a copy of the tier table ordered by tier.
func (g *Gate) Levels() []Level {
	out := make([]Level, len(g.levels))
	copy(out, g.levels)
	return out
}

// Describe returns the description of tier, or "" for an unknown tier.
func (g *Gate) Describe(tier int) string {
	if tier < 0 || tier > g.maxTier() {
		return ""
	}
	return g.levels[tier].Description
}

// Permits reports whether the current tier may mutate something declared at
// required.
func (g *Gate) Permits(required int) bool {
	return g.CurrentTier() <= required
}

// ChangeTier moves the gate to tier. An out-of-range tier leaves the current
// tier unchanged and returns ErrInvalidArgument.
func (g *Gate) ChangeTier(tier int) error {
	if tier < 0 || tier > g.maxTier() {
		return fmt.Errorf("%w: tier %d outside [0, %d]", ErrInvalidArgument, tier, g.maxTier())
	}

	g.mu.Lock()
	old := g.current
	g.current = tier
	g.mu.Unlock()

	g.logger.Warn("access tier changed",
		"old_tier", old,
		"old_level", g.Describe(old),
		"new_tier", tier,
		"new_level", g.Describe(tier),
	)
	return nil
}
