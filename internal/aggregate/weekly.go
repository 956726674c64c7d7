package aggregate

import (
	"context"
	"log/slog"
	"time"

	"github.com/claude/healthsync/internal/metrics"
)

// Weekly rolls seven daily snapshots into per-kind series.
type Weekly struct {
	daily *Daily
	log   *slog.Logger
}

// NewWeekly creates a weekly aggregator over the daily one.
func NewWeekly(daily *Daily, log *slog.Logger) *Weekly {
	return &Weekly{daily: daily, log: log}
}

// Days in a weekly series. Consumers index series positionally, so
// every series always has exactly this many entries.
const WeekDays = 7

// Read builds the 7-day series ending at the given day (zero means
// today). Days are read sequentially to bound concurrent platform
// load; a day-level failure yields a zero-filled slot, never a missing
// one.
func (w *Weekly) Read(ctx context.Context, end time.Time) (*metrics.WeeklyData, error) {
	if end.IsZero() {
		end = time.Now()
	}

	now := time.Now()
	data := &metrics.WeeklyData{}

	for offset := WeekDays - 1; offset >= 0; offset-- {
		date := end.AddDate(0, 0, -offset)

		snap, err := w.daily.Read(ctx, date)
		if err != nil {
			w.log.Warn("day read failed, zero-filling slot",
				"date", date.Format(metrics.DateLayout), "error", err)
			snap = metrics.NewDailySnapshot(date)
		}

		entry := metrics.DailyMetric{
			Date:    date.Format(metrics.DateLayout),
			Day:     date.Format("Mon"),
			IsToday: sameDay(date, now),
		}
		for _, kind := range metrics.AllKinds {
			m := entry
			m.Value = snap.Value(kind)
			m.Unit = metrics.Unit(kind)
			data.Append(kind, m)
		}
	}
	return data, nil
}

// Range returns the ISO dates of the series bounds for an end day.
func Range(end time.Time) (weekStart, weekEnd string) {
	if end.IsZero() {
		end = time.Now()
	}
	return end.AddDate(0, 0, -(WeekDays - 1)).Format(metrics.DateLayout),
		end.Format(metrics.DateLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
