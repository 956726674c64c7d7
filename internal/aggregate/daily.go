// Package aggregate converts per-metric platform records into daily
// snapshots and weekly series.
package aggregate

import (
	"context"
	"log/slog"
	"time"

	"github.com/claude/healthsync/internal/metrics"
	"github.com/claude/healthsync/internal/provider"
)

// Daily computes one snapshot per calendar day from the platform
// provider.
type Daily struct {
	provider provider.HealthProvider
	log      *slog.Logger
}

// NewDaily creates a daily aggregator over the given provider.
func NewDaily(p provider.HealthProvider, log *slog.Logger) *Daily {
	return &Daily{provider: p, log: log}
}

// Read aggregates the given calendar day. A zero date means today.
// The returned snapshot always carries a defined value per kind:
// zero for sum/mean kinds, nil for latest-of-period kinds.
func (d *Daily) Read(ctx context.Context, date time.Time) (*metrics.DailySnapshot, error) {
	if date.IsZero() {
		date = time.Now()
	}
	return d.provider.ReadDailyData(ctx, date)
}
