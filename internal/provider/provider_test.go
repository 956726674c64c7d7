package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/healthsync/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSDK is an in-memory platform capability for provider tests.
type fakeSDK struct {
	mu sync.Mutex

	status    Availability
	initErr   error
	initCalls int

	records  map[metrics.Kind][]metrics.Record
	readErr  map[metrics.Kind]error
	windows  map[metrics.Kind][2]time.Time
	inserted []metrics.Record
	insertErr error

	granted []Scope
	reqErr  error
}

func newFakeSDK() *fakeSDK {
	return &fakeSDK{
		status:  StatusAvailable,
		records: map[metrics.Kind][]metrics.Record{},
		readErr: map[metrics.Kind]error{},
		windows: map[metrics.Kind][2]time.Time{},
	}
}

func (f *fakeSDK) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initErr
}

func (f *fakeSDK) AvailabilityStatus(ctx context.Context) Availability { return f.status }

func (f *fakeSDK) RequestPermission(ctx context.Context, scopes []Scope) ([]Scope, error) {
	if f.reqErr != nil {
		return nil, f.reqErr
	}
	return f.granted, nil
}

func (f *fakeSDK) ReadRecords(ctx context.Context, kind metrics.Kind, start, end time.Time) ([]metrics.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[kind] = [2]time.Time{start, end}
	if err := f.readErr[kind]; err != nil {
		return nil, err
	}
	return f.records[kind], nil
}

func (f *fakeSDK) InsertRecords(ctx context.Context, recs []metrics.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, recs...)
	return nil
}

func (f *fakeSDK) OpenSettings(ctx context.Context) error { return nil }

func stepsRecord(count int64, at time.Time) metrics.Record {
	r := metrics.PointRecord(metrics.KindSteps, at)
	r.Count = &count
	return r
}

// TestInitializeIdempotent verifies repeated Initialize calls hit the
// SDK once.
func TestInitializeIdempotent(t *testing.T) {
	sdk := newFakeSDK()
	p := NewConnectProvider(sdk, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := p.Initialize(ctx); err != nil {
			t.Fatalf("Initialize #%d: %v", i+1, err)
		}
	}
	if sdk.initCalls != 1 {
		t.Errorf("sdk init calls = %d, want 1", sdk.initCalls)
	}
}

// TestInitializeUnavailable verifies the unavailable and
// update-required statuses surface as ErrPlatformUnavailable.
func TestInitializeUnavailable(t *testing.T) {
	for _, status := range []Availability{StatusUnavailable, StatusUpdateRequired} {
		sdk := newFakeSDK()
		sdk.status = status
		p := NewConnectProvider(sdk, testLogger())
		if err := p.Initialize(context.Background()); !errors.Is(err, ErrPlatformUnavailable) {
			t.Errorf("status %v: Initialize error = %v, want ErrPlatformUnavailable", status, err)
		}
	}
}

// TestReadDailyDataIsolatesFailures verifies a failing metric keeps
// its default while siblings succeed, and no error escapes.
func TestReadDailyDataIsolatesFailures(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	sdk := newFakeSDK()
	sdk.records[metrics.KindSteps] = []metrics.Record{stepsRecord(1000, day.Add(9*time.Hour))}
	sdk.readErr[metrics.KindHeartRate] = fmt.Errorf("sensor timeout")

	p := NewConnectProvider(sdk, testLogger())
	snap, err := p.ReadDailyData(context.Background(), day)
	if err != nil {
		t.Fatalf("ReadDailyData: %v", err)
	}
	if snap.Steps != 1000 {
		t.Errorf("steps = %d, want 1000", snap.Steps)
	}
	if snap.HeartRate != 0 {
		t.Errorf("heart rate = %v, want 0", snap.HeartRate)
	}
	if snap.BloodPressure != nil {
		t.Errorf("blood pressure = %+v, want nil", snap.BloodPressure)
	}
}

// TestReadDailyDataAllKindsFailed verifies a store where every read
// fails surfaces as ErrPlatformUnavailable instead of a zero-filled
// snapshot indistinguishable from an empty day.
func TestReadDailyDataAllKindsFailed(t *testing.T) {
	sdk := newFakeSDK()
	for _, kind := range metrics.AllKinds {
		sdk.readErr[kind] = fmt.Errorf("connection refused")
	}

	p := NewConnectProvider(sdk, testLogger())
	snap, err := p.ReadDailyData(context.Background(), time.Now())
	if !errors.Is(err, ErrPlatformUnavailable) {
		t.Errorf("error = %v, want ErrPlatformUnavailable", err)
	}
	if snap != nil {
		t.Errorf("snapshot = %+v, want nil", snap)
	}
}

// TestReadDailyDataEscalatesPermissionDenied verifies a
// permission-shaped read failure is not swallowed like other
// per-metric failures.
func TestReadDailyDataEscalatesPermissionDenied(t *testing.T) {
	sdk := newFakeSDK()
	sdk.readErr[metrics.KindSteps] = fmt.Errorf("read: %w", ErrPermissionDenied)

	p := NewConnectProvider(sdk, testLogger())
	_, err := p.ReadDailyData(context.Background(), time.Now())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("ReadDailyData error = %v, want ErrPermissionDenied", err)
	}
}

// TestReadDailyDataLookbackWindows verifies weight and height query a
// wider window than the single day.
func TestReadDailyDataLookbackWindows(t *testing.T) {
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	sdk := newFakeSDK()
	p := NewConnectProvider(sdk, testLogger())

	if _, err := p.ReadDailyData(context.Background(), day); err != nil {
		t.Fatalf("ReadDailyData: %v", err)
	}

	dayEnd := day.AddDate(0, 0, 1)
	tests := []struct {
		kind      metrics.Kind
		wantStart time.Time
	}{
		{metrics.KindSteps, day},
		{metrics.KindWeight, dayEnd.Add(-30 * 24 * time.Hour)},
		{metrics.KindHeight, dayEnd.Add(-365 * 24 * time.Hour)},
	}
	for _, tt := range tests {
		w, ok := sdk.windows[tt.kind]
		if !ok {
			t.Fatalf("kind %s was never read", tt.kind)
		}
		if !w[0].Equal(tt.wantStart) {
			t.Errorf("%s window start = %v, want %v", tt.kind, w[0], tt.wantStart)
		}
		if !w[1].Equal(dayEnd) {
			t.Errorf("%s window end = %v, want %v", tt.kind, w[1], dayEnd)
		}
	}
}

// TestCheckPermissionsProbe verifies the probe-read semantics: a
// denied probe means ungranted (no error), a passing probe grants read
// scopes, any other failure is a platform problem.
func TestCheckPermissionsProbe(t *testing.T) {
	ctx := context.Background()

	sdk := newFakeSDK()
	p := NewConnectProvider(sdk, testLogger())
	state, err := p.CheckPermissions(ctx)
	if err != nil {
		t.Fatalf("CheckPermissions: %v", err)
	}
	if !state.Granted || len(state.GrantedScopes) != len(metrics.AllKinds) {
		t.Errorf("state = %+v, want granted with %d read scopes", state, len(metrics.AllKinds))
	}

	sdk.readErr[metrics.KindSteps] = ErrPermissionDenied
	state, err = p.CheckPermissions(ctx)
	if err != nil {
		t.Fatalf("CheckPermissions after denial: %v", err)
	}
	if state.Granted {
		t.Error("state.Granted = true after denied probe")
	}

	sdk.readErr[metrics.KindSteps] = fmt.Errorf("connection refused")
	if _, err := p.CheckPermissions(ctx); !errors.Is(err, ErrPlatformUnavailable) {
		t.Errorf("CheckPermissions error = %v, want ErrPlatformUnavailable", err)
	}
}

// TestRequestPermissionsSDKFailure verifies an SDK-level prompt
// failure returns a PermissionError carrying the settings remediation.
func TestRequestPermissionsSDKFailure(t *testing.T) {
	sdk := newFakeSDK()
	sdk.reqErr = fmt.Errorf("health service not configured")
	p := NewConnectProvider(sdk, testLogger())

	_, err := p.RequestPermissions(context.Background(), DefaultScopes())
	var perr *PermissionError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PermissionError", err)
	}
	if perr.Remediation != RemediationOpenSettings {
		t.Errorf("remediation = %q, want %q", perr.Remediation, RemediationOpenSettings)
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("PermissionError does not unwrap to ErrPermissionDenied")
	}
}

// TestWriteHealthDataConversions verifies display units converting to
// platform record units on write, and that a write then a read round-
// trips weight.
func TestWriteHealthDataConversions(t *testing.T) {
	sdk := newFakeSDK()
	p := NewHealthKitProvider(sdk, testLogger())
	ctx := context.Background()

	weight := 70.5
	height := 175.5
	hydration := 500.0
	req := metrics.WriteRequest{Weight: &weight, Height: &height, Hydration: &hydration}
	if ok := p.WriteHealthData(ctx, req); !ok {
		t.Fatal("WriteHealthData returned false")
	}

	byKind := map[metrics.Kind]metrics.Record{}
	for _, r := range sdk.inserted {
		byKind[r.Kind] = r
	}
	if len(byKind) != 3 {
		t.Fatalf("inserted %d kinds, want 3", len(byKind))
	}
	if v := *byKind[metrics.KindWeight].Value; v != 70.5 {
		t.Errorf("weight record = %v kg, want 70.5", v)
	}
	if v := *byKind[metrics.KindHeight].Value; v != 1.755 {
		t.Errorf("height record = %v m, want 1.755", v)
	}
	if v := *byKind[metrics.KindHydration].Value; v != 0.5 {
		t.Errorf("hydration record = %v L, want 0.5", v)
	}

	// Round-trip: the written weight reads back at 70.5.
	sdk.records[metrics.KindWeight] = []metrics.Record{byKind[metrics.KindWeight]}
	snap, err := p.ReadDailyData(ctx, time.Now())
	if err != nil {
		t.Fatalf("ReadDailyData: %v", err)
	}
	if snap.Weight == nil || *snap.Weight != 70.5 {
		t.Errorf("weight = %v, want 70.5", snap.Weight)
	}
}

// TestWriteHealthDataRejected verifies failures return false, not an
// error, and that an empty request writes nothing.
func TestWriteHealthDataRejected(t *testing.T) {
	sdk := newFakeSDK()
	sdk.insertErr = fmt.Errorf("storage full")
	p := NewConnectProvider(sdk, testLogger())

	steps := int64(100)
	if ok := p.WriteHealthData(context.Background(), metrics.WriteRequest{Steps: &steps}); ok {
		t.Error("WriteHealthData = true, want false on insert failure")
	}
	if ok := p.WriteHealthData(context.Background(), metrics.WriteRequest{}); ok {
		t.Error("WriteHealthData = true for empty request")
	}
}

// TestSelect verifies platform selection.
func TestSelect(t *testing.T) {
	sdk := newFakeSDK()
	log := testLogger()

	p, err := Select(PlatformAndroid, sdk, log)
	if err != nil || p.Platform() != PlatformAndroid {
		t.Errorf("Select(android) = %v, %v", p, err)
	}
	p, err = Select(PlatformIOS, sdk, log)
	if err != nil || p.Platform() != PlatformIOS {
		t.Errorf("Select(ios) = %v, %v", p, err)
	}
	if _, err := Select("windows", sdk, log); err == nil {
		t.Error("Select(windows) succeeded, want error")
	}
}
