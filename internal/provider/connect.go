package provider

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/healthsync/internal/metrics"
)

// connectProvider is the Android-like variant. The platform's
// claimed-permission API is unreliable for read scopes, so permission
// checks always probe with a real read.
type connectProvider struct {
	sdk SDK
	log *slog.Logger

	mu          sync.Mutex
	initialized bool
}

// NewConnectProvider creates the Android-like provider.
func NewConnectProvider(sdk SDK, log *slog.Logger) HealthProvider {
	return &connectProvider{sdk: sdk, log: log}
}

func (p *connectProvider) Platform() Platform { return PlatformAndroid }

func (p *connectProvider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}

	switch p.sdk.AvailabilityStatus(ctx) {
	case StatusAvailable:
	case StatusUpdateRequired:
		p.log.Warn("health service requires an update")
		return ErrPlatformUnavailable
	default:
		return ErrPlatformUnavailable
	}

	if err := p.sdk.Initialize(ctx); err != nil {
		return errors.Join(ErrPlatformUnavailable, err)
	}
	p.initialized = true
	p.log.Info("health service initialized", "platform", p.Platform())
	return nil
}

func (p *connectProvider) IsAvailable(ctx context.Context) bool {
	return p.sdk.AvailabilityStatus(ctx) == StatusAvailable
}

func (p *connectProvider) RequestPermissions(ctx context.Context, scopes []Scope) (PermissionState, error) {
	granted, err := p.sdk.RequestPermission(ctx, scopes)
	if err != nil {
		// SDK-level failure (service not installed/configured): report
		// ungranted and point the caller at settings instead of a
		// silent retry loop.
		p.log.Warn("permission request failed", "error", err)
		return PermissionState{}, &PermissionError{Scopes: scopes, Remediation: RemediationOpenSettings}
	}
	if len(granted) == 0 {
		return PermissionState{}, nil
	}
	return PermissionState{Granted: true, GrantedScopes: granted}, nil
}

func (p *connectProvider) CheckPermissions(ctx context.Context) (PermissionState, error) {
	state, err := probePermissions(ctx, p.sdk)
	if err != nil {
		return PermissionState{}, errors.Join(ErrPlatformUnavailable, err)
	}
	return state, nil
}

func (p *connectProvider) ReadDailyData(ctx context.Context, date time.Time) (*metrics.DailySnapshot, error) {
	return readDaily(ctx, p.sdk, date, p.log)
}

func (p *connectProvider) WriteHealthData(ctx context.Context, req metrics.WriteRequest) bool {
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

func (p *connectProvider) OpenSettings(ctx context.Context) {
	if err := p.sdk.OpenSettings(ctx); err != nil {
		p.log.Warn("failed to open health settings", "error", err)
	}
}
