// Package archive persists weekly snapshots in a bounded, deduplicated
// history and derives rolling summary statistics from it.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/claude/healthsync/internal/kv"
	"github.com/claude/healthsync/internal/metrics"
)

// Storage keys. The archive is the only writer under kv.PrefixArchive.
const (
	keyCurrentWeek     = kv.PrefixArchive + "current_week"
	keyHistoricalWeeks = kv.PrefixArchive + "historical_weeks"
)

// MaxWeeks is the retention bound. Saving a 53rd distinct week evicts
// the oldest by archive time; eviction is silent, not an error.
const MaxWeeks = 52

// ReportWeeks is how much history a profile report includes, roughly
// one quarter.
const ReportWeeks = 12

// Archive owns the persisted weekly history.
type Archive struct {
	store kv.Store
	log   *slog.Logger

	// Serializes the read-merge-write of the historical list so
	// concurrent saves cannot lose updates.
	mu sync.Mutex
}

// New creates an archive over the persistence capability.
func New(store kv.Store, log *slog.Logger) *Archive {
	return &Archive{store: store, log: log}
}

// SaveWeekly stores the week as the current-week pointer and upserts
// it into the historical list keyed by (weekStart, weekEnd). The
// merge, sort by archivedAt descending, and truncation to MaxWeeks
// happen atomically against one in-memory snapshot of the list.
// Persistence failures are logged and reported, never panicked.
func (a *Archive) SaveWeekly(ctx context.Context, data metrics.WeeklyData, weekStart, weekEnd string) error {
	entry := metrics.StoredWeekly{
		WeekStart:  weekStart,
		WeekEnd:    weekEnd,
		Data:       data,
		ArchivedAt: time.Now().UTC(),
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding weekly entry: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Set(ctx, keyCurrentWeek, string(encoded)); err != nil {
		a.log.Error("failed to persist current week", "error", err)
		return fmt.Errorf("persisting current week: %w", err)
	}

	weeks, err := a.loadHistory(ctx)
	if err != nil {
		a.log.Error("failed to load archive history", "error", err)
		return fmt.Errorf("loading archive history: %w", err)
	}

	replaced := false
	for i, w := range weeks {
		if w.WeekStart == entry.WeekStart && w.WeekEnd == entry.WeekEnd {
			weeks[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		weeks = append(weeks, entry)
	}

	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].ArchivedAt.After(weeks[j].ArchivedAt)
	})
	if len(weeks) > MaxWeeks {
		weeks = weeks[:MaxWeeks]
	}

	listJSON, err := json.Marshal(weeks)
	if err != nil {
		return fmt.Errorf("encoding archive history: %w", err)
	}
	if err := a.store.Set(ctx, keyHistoricalWeeks, string(listJSON)); err != nil {
		a.log.Error("failed to persist archive history", "error", err)
		return fmt.Errorf("persisting archive history: %w", err)
	}
	return nil
}

// CurrentWeek returns the current-week pointer, or nil when none has
// been saved yet.
func (a *Archive) CurrentWeek(ctx context.Context) (*metrics.StoredWeekly, error) {
	raw, err := a.store.Get(ctx, keyCurrentWeek)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading current week: %w", err)
	}
	var entry metrics.StoredWeekly
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decoding current week: %w", err)
	}
	return &entry, nil
}

// History returns the persisted weeks, newest first.
func (a *Archive) History(ctx context.Context) ([]metrics.StoredWeekly, error) {
	return a.loadHistory(ctx)
}

func (a *Archive) loadHistory(ctx context.Context) ([]metrics.StoredWeekly, error) {
	raw, err := a.store.Get(ctx, keyHistoricalWeeks)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var weeks []metrics.StoredWeekly
	if err := json.Unmarshal([]byte(raw), &weeks); err != nil {
		return nil, fmt.Errorf("decoding archive history: %w", err)
	}
	return weeks, nil
}

// RollingSummary averages each week's already-averaged per-metric
// value across the reported weeks. The two levels (day→week,
// week→rolling) keep sparse weeks weighted equally instead of by
// record count.
type RollingSummary struct {
	AvgSteps           float64 `json:"avg_steps"`
	AvgHeartRate       float64 `json:"avg_heart_rate"`
	AvgHydration       float64 `json:"avg_hydration"`
	AvgBodyTemperature float64 `json:"avg_body_temperature"`
	WeeksTracked       int     `json:"weeks_tracked"`
}

// ProfileReport combines the current week with recent history and the
// rolling summary.
type ProfileReport struct {
	CurrentWeek *metrics.StoredWeekly  `json:"current_week"`
	History     []metrics.StoredWeekly `json:"history"`
	Summary     RollingSummary         `json:"summary"`
}

// Report builds the profile report from the current-week pointer and
// up to ReportWeeks historical weeks.
func (a *Archive) Report(ctx context.Context) (*ProfileReport, error) {
	current, err := a.CurrentWeek(ctx)
	if err != nil {
		return nil, err
	}
	weeks, err := a.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	if len(weeks) > ReportWeeks {
		weeks = weeks[:ReportWeeks]
	}

	return &ProfileReport{
		CurrentWeek: current,
		History:     weeks,
		Summary:     summarize(weeks),
	}, nil
}

func summarize(weeks []metrics.StoredWeekly) RollingSummary {
	s := RollingSummary{WeeksTracked: len(weeks)}
	if len(weeks) == 0 {
		return s
	}

	for _, w := range weeks {
		s.AvgSteps += weekMean(w.Data.Steps)
		s.AvgHeartRate += weekMean(w.Data.HeartRate)
		s.AvgHydration += weekMean(w.Data.Hydration)
		s.AvgBodyTemperature += weekMean(w.Data.BodyTemperature)
	}
	n := float64(len(weeks))
	s.AvgSteps /= n
	s.AvgHeartRate /= n
	s.AvgHydration /= n
	s.AvgBodyTemperature /= n
	return s
}

// weekMean is the first averaging level: one value per week.
func weekMean(series []metrics.DailyMetric) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, m := range series {
		sum += m.Value
	}
	return sum / float64(len(series))
}
