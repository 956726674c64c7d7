package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/healthsync/internal/metrics"
)

// healthKitProvider is the iOS-like variant. The platform reports
// write grants but deliberately hides read-grant status, so read
// permission is established by probing and write grants are remembered
// from the last prompt.
type healthKitProvider struct {
	sdk SDK
	log *slog.Logger

	mu          sync.Mutex
	initialized bool
	writeScopes []Scope
}

// NewHealthKitProvider creates the iOS-like provider.
func NewHealthKitProvider(sdk SDK, log *slog.Logger) HealthProvider {
	return &healthKitProvider{sdk: sdk, log: log}
}

func (p *healthKitProvider) Platform() Platform { return PlatformIOS }

func (p *healthKitProvider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if p.sdk.AvailabilityStatus(ctx) != StatusAvailable {
		return ErrPlatformUnavailable
	}
	if err := p.sdk.Initialize(ctx); err != nil {
		return errors.Join(ErrPlatformUnavailable, err)
	}
	p.initialized = true
	p.log.Info("health service initialized", "platform", p.Platform())
	return nil
}

func (p *healthKitProvider) IsAvailable(ctx context.Context) bool {
	return p.sdk.AvailabilityStatus(ctx) == StatusAvailable
}

func (p *healthKitProvider) RequestPermissions(ctx context.Context, scopes []Scope) (PermissionState, error) {
	granted, err := p.sdk.RequestPermission(ctx, scopes)
	if err != nil {
		p.log.Warn("permission request failed", "error", err)
		return PermissionState{}, &PermissionError{Scopes: scopes, Remediation: RemediationOpenSettings}
	}

	var writes []Scope
	for _, s := range granted {
		if s.Access == AccessWrite {
			writes = append(writes, s)
		}
	}
	p.mu.Lock()
	p.writeScopes = writes
	p.mu.Unlock()

	if len(granted) == 0 {
		return PermissionState{}, nil
	}
	return PermissionState{Granted: true, GrantedScopes: granted}, nil
}

func (p *healthKitProvider) CheckPermissions(ctx context.Context) (PermissionState, error) {
	state, err := probePermissions(ctx, p.sdk)
	if err != nil {
		return PermissionState{}, errors.Join(ErrPlatformUnavailable, err)
	}
	if !state.Granted {
		return state, nil
	}
	// Read probe passed; layer in the write grants from the last prompt.
	p.mu.Lock()
	state.GrantedScopes = append(state.GrantedScopes, p.writeScopes...)
	p.mu.Unlock()
	return state, nil
}

func (p *healthKitProvider) ReadDailyData(ctx context.Context, date time.Time) (*metrics.DailySnapshot, error) {
	return readDaily(ctx, p.sdk, date, p.log)
}

func (p *healthKitProvider) WriteHealthData(ctx context.Context, req metrics.WriteRequest) bool {
	recs := writeRecords(req, time.Now())
	if len(recs) == 0 {
		return false
	}
	if err := p.sdk.InsertRecords(ctx, recs); err != nil {
		p.log.Warn("health data write rejected", "records", len(recs), "error", err)
		return false
	}
	return true
}

func (p *healthKitProvider) OpenSettings(ctx context.Context) {
	if err := p.sdk.OpenSettings(ctx); err != nil {
		p.log.Warn("failed to open health settings", "error", err)
	}
}
