package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/claude/healthsync/internal/kv"
	"github.com/claude/healthsync/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func weekData(steps float64) metrics.WeeklyData {
	var data metrics.WeeklyData
	for i := 0; i < 7; i++ {
		for _, kind := range metrics.AllKinds {
			v := 0.0
			if kind == metrics.KindSteps {
				v = steps
			}
			data.Append(kind, metrics.DailyMetric{Value: v, Unit: metrics.Unit(kind)})
		}
	}
	return data
}

// TestSaveWeeklyUpsert verifies saving the same (weekStart, weekEnd)
// twice keeps one entry holding the second call's data.
func TestSaveWeeklyUpsert(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(), testLogger())

	if err := a.SaveWeekly(ctx, weekData(1000), "2026-03-08", "2026-03-14"); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := a.SaveWeekly(ctx, weekData(2000), "2026-03-08", "2026-03-14"); err != nil {
		t.Fatalf("second save: %v", err)
	}

	weeks, err := a.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(weeks) != 1 {
		t.Fatalf("history length = %d, want 1 (upsert, not append)", len(weeks))
	}
	if got := weeks[0].Data.Steps[0].Value; got != 2000 {
		t.Errorf("archived steps = %v, want the second call's 2000", got)
	}

	current, err := a.CurrentWeek(ctx)
	if err != nil {
		t.Fatalf("CurrentWeek: %v", err)
	}
	if current == nil || current.WeekStart != "2026-03-08" {
		t.Errorf("current week = %+v, want week starting 2026-03-08", current)
	}
}

// TestSaveWeeklyRetention verifies the archive never exceeds MaxWeeks
// and saving one more evicts the oldest by archive time.
func TestSaveWeeklyRetention(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(), testLogger())

	for i := 0; i < MaxWeeks+1; i++ {
		start := fmt.Sprintf("week-%03d-start", i)
		end := fmt.Sprintf("week-%03d-end", i)
		if err := a.SaveWeekly(ctx, weekData(float64(i)), start, end); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	weeks, err := a.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(weeks) != MaxWeeks {
		t.Fatalf("history length = %d, want %d", len(weeks), MaxWeeks)
	}
	// Newest first; week 0 (the oldest) was evicted.
	if weeks[0].WeekStart != "week-052-start" {
		t.Errorf("newest entry = %s, want week-052-start", weeks[0].WeekStart)
	}
	for _, w := range weeks {
		if w.WeekStart == "week-000-start" {
			t.Error("oldest week was not evicted")
		}
	}
}

// TestSaveWeeklyConcurrent verifies racing saves do not lose updates.
func TestSaveWeeklyConcurrent(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := fmt.Sprintf("w%02d-start", i)
			end := fmt.Sprintf("w%02d-end", i)
			if err := a.SaveWeekly(ctx, weekData(float64(i)), start, end); err != nil {
				t.Errorf("save %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	weeks, err := a.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(weeks) != 20 {
		t.Errorf("history length = %d, want 20 (no lost updates)", len(weeks))
	}
}

// TestReportTwoLevelAverage verifies the rolling summary averages
// week-level means, not a flattened day-level pool.
func TestReportTwoLevelAverage(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(), testLogger())

	// Week A: steady 7000 steps every day → week mean 7000.
	if err := a.SaveWeekly(ctx, weekData(7000), "a-start", "a-end"); err != nil {
		t.Fatal(err)
	}
	// Week B: one 7000-step day, six empty days → week mean 1000.
	var sparse metrics.WeeklyData
	for i := 0; i < 7; i++ {
		v := 0.0
		if i == 0 {
			v = 7000
		}
		for _, kind := range metrics.AllKinds {
			val := 0.0
			if kind == metrics.KindSteps {
				val = v
			}
			sparse.Append(kind, metrics.DailyMetric{Value: val})
		}
	}
	if err := a.SaveWeekly(ctx, sparse, "b-start", "b-end"); err != nil {
		t.Fatal(err)
	}

	report, err := a.Report(ctx)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	// (7000 + 1000) / 2, not (7000*7 + 7000) / 14.
	if report.Summary.AvgSteps != 4000 {
		t.Errorf("avg steps = %v, want 4000 (two-level average)", report.Summary.AvgSteps)
	}
	if report.Summary.WeeksTracked != 2 {
		t.Errorf("weeks tracked = %d, want 2", report.Summary.WeeksTracked)
	}
}

// TestReportLimitsHistory verifies the report includes at most
// ReportWeeks historical weeks.
func TestReportLimitsHistory(t *testing.T) {
	ctx := context.Background()
	a := New(kv.NewMemory(), testLogger())

	for i := 0; i < ReportWeeks+5; i++ {
		start := fmt.Sprintf("w%02d-start", i)
		if err := a.SaveWeekly(ctx, weekData(100), start, start+"-end"); err != nil {
			t.Fatal(err)
		}
	}
	report, err := a.Report(ctx)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(report.History) != ReportWeeks {
		t.Errorf("report history length = %d, want %d", len(report.History), ReportWeeks)
	}
}

// TestReportEmptyArchive verifies an empty archive reports cleanly.
func TestReportEmptyArchive(t *testing.T) {
	a := New(kv.NewMemory(), testLogger())
	report, err := a.Report(context.Background())
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.CurrentWeek != nil {
		t.Errorf("current week = %+v, want nil", report.CurrentWeek)
	}
	if report.Summary.WeeksTracked != 0 {
		t.Errorf("weeks tracked = %d, want 0", report.Summary.WeeksTracked)
	}
}
