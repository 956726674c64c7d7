// Package widget produces the minimal (current value, goal)
// projections consumed by home-screen display surfaces, degrading
// through a last-known-value cache when the platform store is
// unavailable.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/claude/healthsync/internal/aggregate"
	"github.com/claude/healthsync/internal/kv"
	"github.com/claude/healthsync/internal/metrics"
)

// Fallback cache keys. Fixed so external display surfaces can rely on
// them across restarts.
const (
	keySteps     = kv.PrefixWidget + "steps"
	keyHydration = kv.PrefixWidget + "hydration"
)

// Default goals used when no configuration overrides them.
const (
	DefaultStepsGoal     = 10000
	DefaultHydrationGoal = 2000 // mL
)

// Projection is the widget payload: just the current value and goal.
type Projection struct {
	CurrentValue float64 `json:"current_value"`
	Goal         float64 `json:"goal"`
}

// Goals configures the projection targets.
type Goals struct {
	Steps     float64 `yaml:"steps"`
	Hydration float64 `yaml:"hydration_ml"`
}

func (g Goals) orDefaults() Goals {
	if g.Steps <= 0 {
		g.Steps = DefaultStepsGoal
	}
	if g.Hydration <= 0 {
		g.Hydration = DefaultHydrationGoal
	}
	return g
}

// Cache stores last-known widget values in the persistence capability.
type Cache struct {
	store kv.Store
	log   *slog.Logger
}

// NewCache creates a fallback cache over the persistence capability.
func NewCache(store kv.Store, log *slog.Logger) *Cache {
	return &Cache{store: store, log: log}
}

// Put records a last-known value. Persistence failures are logged and
// treated as no-ops.
func (c *Cache) Put(ctx context.Context, key string, value float64) {
	if err := c.store.Set(ctx, key, strconv.FormatFloat(value, 'f', -1, 64)); err != nil {
		c.log.Warn("widget cache write failed", "key", key, "error", err)
	}
}

// Get returns the last-known value, reporting whether one exists.
func (c *Cache) Get(ctx context.Context, key string) (float64, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.log.Warn("widget cache read failed", "key", key, "error", err)
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.log.Warn("widget cache holds a bad value", "key", key, "value", raw)
		return 0, false
	}
	return v, true
}

// Bridge resolves widget projections: live read first (writing through
// to the cache), then the cache, then a zeroed default.
type Bridge struct {
	daily *aggregate.Daily
	cache *Cache
	goals Goals
	log   *slog.Logger
}

// NewBridge creates a widget bridge.
func NewBridge(daily *aggregate.Daily, cache *Cache, goals Goals, log *slog.Logger) *Bridge {
	return &Bridge{daily: daily, cache: cache, goals: goals.orDefaults(), log: log}
}

// StepsProjection resolves today's steps projection.
func (b *Bridge) StepsProjection(ctx context.Context) Projection {
	return b.resolve(ctx, keySteps, b.goals.Steps, func(snap *metrics.DailySnapshot) float64 {
		return float64(snap.Steps)
	})
}

// HydrationProjection resolves today's hydration projection in mL.
func (b *Bridge) HydrationProjection(ctx context.Context) Projection {
	return b.resolve(ctx, keyHydration, b.goals.Hydration, func(snap *metrics.DailySnapshot) float64 {
		return float64(snap.Hydration)
	})
}

func (b *Bridge) resolve(ctx context.Context, key string, goal float64, pick func(*metrics.DailySnapshot) float64) Projection {
	snap, err := b.daily.Read(ctx, time.Now())
	if err == nil {
		value := pick(snap)
		// Write through so later offline/denied states degrade to this.
		b.cache.Put(ctx, key, value)
		return Projection{CurrentValue: value, Goal: goal}
	}
	b.log.Warn("live widget read failed, falling back", "key", key, "error", err)

	if cached, ok := b.cache.Get(ctx, key); ok {
		return Projection{CurrentValue: cached, Goal: goal}
	}
	return Projection{CurrentValue: 0, Goal: goal}
}

// PushUpdate opportunistically refreshes both projections, typically
// on app foreground. Fire and forget: failures are logged, never
// returned to the invoking lifecycle event.
func (b *Bridge) PushUpdate(ctx context.Context) {
	steps := b.StepsProjection(ctx)
	hydration := b.HydrationProjection(ctx)
	b.log.Debug("widget projections refreshed",
		"steps", steps.CurrentValue, "hydration", hydration.CurrentValue)
}
