package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/healthsync/internal/metrics"
)

// Lookback windows for latest-of-period kinds. Weight and height are
// not recorded daily, so the last reading inside a wider window counts.
const (
	weightLookback = 30 * 24 * time.Hour
	heightLookback = 365 * 24 * time.Hour
)

// dayBounds returns [startOfDay, endOfDay) for the date in its own
// location. All bucketing uses these local-day bounds.
func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}

// readWindow returns the query range for a kind within a day.
func readWindow(kind metrics.Kind, dayStart, dayEnd time.Time) (time.Time, time.Time) {
	switch kind {
	case metrics.KindWeight:
		return dayEnd.Add(-weightLookback), dayEnd
	case metrics.KindHeight:
		return dayEnd.Add(-heightLookback), dayEnd
	default:
		return dayStart, dayEnd
	}
}

type kindResult struct {
	kind metrics.Kind
	recs []metrics.Record
	err  error
}

// readDaily issues one bounded read per kind, all fired concurrently
// and joined all-settled so one kind's failure cannot cancel its
// siblings. Failed kinds keep the snapshot's zero/null default; a
// permission-shaped failure escalates after the join. When every kind
// fails the store itself is down, and the read reports
// ErrPlatformUnavailable rather than passing off a zero-filled
// snapshot as an empty day.
func readDaily(ctx context.Context, sdk SDK, date time.Time, log *slog.Logger) (*metrics.DailySnapshot, error) {
	dayStart, dayEnd := dayBounds(date)
	snap := metrics.NewDailySnapshot(dayStart)

	results := make([]kindResult, len(metrics.AllKinds))
	var wg sync.WaitGroup
	for i, kind := range metrics.AllKinds {
		wg.Add(1)
		go func(i int, kind metrics.Kind) {
			defer wg.Done()
			start, end := readWindow(kind, dayStart, dayEnd)
			recs, err := sdk.ReadRecords(ctx, kind, start, end)
			results[i] = kindResult{kind: kind, recs: recs, err: err}
		}(i, kind)
	}
	wg.Wait()

	var denied, firstErr error
	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			if firstErr == nil {
				firstErr = res.err
			}
			if errors.Is(res.err, ErrPermissionDenied) {
				denied = res.err
			}
			log.Warn("metric read failed, substituting default",
				"kind", res.kind, "date", snap.Date, "error", res.err)
			continue
		}
		snap.Apply(res.kind, res.recs)
	}
	if denied != nil {
		return nil, denied
	}
	if failed == len(results) {
		return nil, errors.Join(ErrPlatformUnavailable, firstErr)
	}
	return snap, nil
}

// probePermissions performs the bounded low-cost read that stands in
// for the platform's unreliable claimed-permission API: today's steps.
// Success means read scopes are usable; a permission-shaped failure
// means they are not.
func probePermissions(ctx context.Context, sdk SDK) (PermissionState, error) {
	dayStart, dayEnd := dayBounds(time.Now())
	_, err := sdk.ReadRecords(ctx, metrics.KindSteps, dayStart, dayEnd)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return PermissionState{}, nil
		}
		return PermissionState{}, err
	}

	scopes := make([]Scope, 0, len(metrics.AllKinds))
	for _, kind := range metrics.AllKinds {
		scopes = append(scopes, Scope{AccessRead, kind})
	}
	return PermissionState{Granted: true, GrantedScopes: scopes}, nil
}

// writeRecords converts a partial snapshot into platform records.
// Conversions: height cm→m, hydration mL→L, distance km→m; blood
// pressure stays in mmHg. The point parameter stamps every record.
func writeRecords(req metrics.WriteRequest, point time.Time) []metrics.Record {
	var recs []metrics.Record

	if req.Steps != nil {
		r := metrics.PointRecord(metrics.KindSteps, point)
		r.Count = req.Steps
		recs = append(recs, r)
	}
	if req.HeartRate != nil {
		r := metrics.PointRecord(metrics.KindHeartRate, point)
		r.Samples = []float64{*req.HeartRate}
		recs = append(recs, r)
	}
	if req.Distance != nil {
		r := metrics.PointRecord(metrics.KindDistance, point)
		v := *req.Distance * 1000 // km to meters
		r.Value = &v
		r.Unit = "m"
		recs = append(recs, r)
	}
	if req.Weight != nil {
		r := metrics.PointRecord(metrics.KindWeight, point)
		v := *req.Weight
		r.Value = &v
		r.Unit = "kg"
		recs = append(recs, r)
	}
	if req.Height != nil {
		r := metrics.PointRecord(metrics.KindHeight, point)
		v := *req.Height / 100 // cm to meters
		r.Value = &v
		r.Unit = "m"
		recs = append(recs, r)
	}
	if req.BloodPressure != nil {
		r := metrics.PointRecord(metrics.KindBloodPressure, point)
		sys, dia := req.BloodPressure.Systolic, req.BloodPressure.Diastolic
		r.Systolic = &sys
		r.Diastolic = &dia
		r.Unit = "mmHg"
		recs = append(recs, r)
	}
	if req.BodyTemperature != nil {
		r := metrics.PointRecord(metrics.KindBodyTemperature, point)
		r.Samples = []float64{*req.BodyTemperature}
		r.Unit = "°C"
		recs = append(recs, r)
	}
	if req.Hydration != nil {
		r := metrics.PointRecord(metrics.KindHydration, point)
		v := *req.Hydration / 1000 // mL to liters
		r.Value = &v
		r.Unit = "L"
		recs = append(recs, r)
	}
	return recs
}
