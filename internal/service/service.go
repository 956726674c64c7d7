// Package service orchestrates the permission lifecycle and the data
// loading operations exposed to consumers. It owns the provider and
// presents a small state machine over it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/healthsync/internal/aggregate"
	"github.com/claude/healthsync/internal/archive"
	"github.com/claude/healthsync/internal/kv"
	"github.com/claude/healthsync/internal/metrics"
	"github.com/claude/healthsync/internal/provider"
	"github.com/claude/healthsync/internal/widget"
)

// Status is the externally visible lifecycle state. Operations may run
// concurrently; the last completed call's state wins.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitializing  Status = "initializing"
	StatusNoPermission  Status = "no-permission"
	StatusGranted       Status = "granted"
	StatusError         Status = "error"
)

// Permission-state cache key; a restart can render last-known status
// before the first probe completes.
const keyPermissionState = kv.PrefixPermission + "state"

// Service wires the provider, aggregators, archive, and widget bridge
// behind the produced projection API.
type Service struct {
	provider provider.HealthProvider
	daily    *aggregate.Daily
	weekly   *aggregate.Weekly
	archive  *archive.Archive
	bridge   *widget.Bridge
	store    kv.Store
	log      *slog.Logger

	mu     sync.Mutex
	status Status
	perm   provider.PermissionState
}

// New creates the service. The provider selection already happened;
// the service never cares which platform variant it holds.
func New(p provider.HealthProvider, daily *aggregate.Daily, weekly *aggregate.Weekly,
	arch *archive.Archive, bridge *widget.Bridge, store kv.Store, log *slog.Logger) *Service {
	return &Service{
		provider: p,
		daily:    daily,
		weekly:   weekly,
		archive:  arch,
		bridge:   bridge,
		store:    store,
		log:      log,
		status:   StatusUninitialized,
	}
}

// Status returns the current lifecycle state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Permissions returns the last observed permission state.
func (s *Service) Permissions() provider.PermissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perm
}

func (s *Service) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Service) setPermissions(ctx context.Context, perm provider.PermissionState) {
	s.mu.Lock()
	s.perm = perm
	if perm.Granted {
		s.status = StatusGranted
	} else {
		s.status = StatusNoPermission
	}
	s.mu.Unlock()

	if encoded, err := json.Marshal(perm); err == nil {
		if err := s.store.Set(ctx, keyPermissionState, string(encoded)); err != nil {
			s.log.Warn("failed to cache permission state", "error", err)
		}
	}
}

// RequestPermissions prompts for the default scopes.
func (s *Service) RequestPermissions(ctx context.Context) (provider.PermissionState, error) {
	if err := s.initialize(ctx); err != nil {
		return provider.PermissionState{}, err
	}
	state, err := s.provider.RequestPermissions(ctx, provider.DefaultScopes())
	if err != nil {
		s.setStatus(StatusNoPermission)
		return state, err
	}
	s.setPermissions(ctx, state)
	return state, nil
}

// CheckPermissions re-queries the real permission state. Never sticky:
// the user can revoke access outside the app at any time.
func (s *Service) CheckPermissions(ctx context.Context) (provider.PermissionState, error) {
	if err := s.initialize(ctx); err != nil {
		return provider.PermissionState{}, err
	}
	state, err := s.provider.CheckPermissions(ctx)
	if err != nil {
		s.setStatus(StatusError)
		return state, err
	}
	s.setPermissions(ctx, state)
	return state, nil
}

// LoadDailyData ensures access and aggregates the given day (zero date
// means today).
func (s *Service) LoadDailyData(ctx context.Context, date time.Time) (*metrics.DailySnapshot, error) {
	if err := s.ensureGranted(ctx); err != nil {
		return nil, err
	}
	snap, err := s.daily.Read(ctx, date)
	if err != nil {
		if errors.Is(err, provider.ErrPermissionDenied) {
			s.setStatus(StatusNoPermission)
			return nil, &provider.PermissionError{Remediation: provider.RemediationOpenSettings}
		}
		return nil, err
	}
	return snap, nil
}

// LoadWeeklyData ensures access, aggregates the 7-day series ending at
// the given day (zero means today), archives the completed range, and
// refreshes widget projections. Archival and widget refresh are
// opportunistic: their failures are logged, not returned.
func (s *Service) LoadWeeklyData(ctx context.Context, end time.Time) (*metrics.WeeklyData, error) {
	if err := s.ensureGranted(ctx); err != nil {
		return nil, err
	}
	data, err := s.weekly.Read(ctx, end)
	if err != nil {
		return nil, err
	}

	weekStart, weekEnd := aggregate.Range(end)
	if err := s.archive.SaveWeekly(ctx, *data, weekStart, weekEnd); err != nil {
		s.log.Warn("weekly archival failed", "week_start", weekStart, "error", err)
	}
	s.bridge.PushUpdate(ctx)

	return data, nil
}

// WriteHealthData ensures access and writes the present fields as one
// batch. False means the write was declined or failed, distinguished
// from a crash by the absence of an error.
func (s *Service) WriteHealthData(ctx context.Context, req metrics.WriteRequest) (bool, error) {
	if err := s.ensureGranted(ctx); err != nil {
		return false, err
	}
	return s.provider.WriteHealthData(ctx, req), nil
}

// OpenHealthSettings deep-links into the platform permission surface.
func (s *Service) OpenHealthSettings(ctx context.Context) {
	s.provider.OpenSettings(ctx)
}

// initialize opens the provider once; repeated calls are cheap because
// the provider caches success.
func (s *Service) initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.status == StatusUninitialized {
		s.status = StatusInitializing
	}
	s.mu.Unlock()

	if err := s.provider.Initialize(ctx); err != nil {
		s.setStatus(StatusError)
		return err
	}
	return nil
}

// ensureGranted makes every data-loading call permission-safe: check
// first, then transparently attempt one permission request before
// failing with an actionable error.
func (s *Service) ensureGranted(ctx context.Context) error {
	if err := s.initialize(ctx); err != nil {
		return err
	}

	state, err := s.provider.CheckPermissions(ctx)
	if err != nil {
		s.setStatus(StatusError)
		return err
	}
	if !state.Granted {
		state, err = s.provider.RequestPermissions(ctx, provider.DefaultScopes())
		if err != nil {
			s.setStatus(StatusNoPermission)
			return err
		}
	}
	s.setPermissions(ctx, state)

	if !state.Granted {
		return &provider.PermissionError{
			Scopes:      provider.DefaultScopes(),
			Remediation: provider.RemediationOpenSettings,
		}
	}
	return nil
}

// CachedPermissions returns the permission state persisted by the last
// successful check, if any.
func (s *Service) CachedPermissions(ctx context.Context) (provider.PermissionState, bool) {
	raw, err := s.store.Get(ctx, keyPermissionState)
	if err != nil {
		return provider.PermissionState{}, false
	}
	var state provider.PermissionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return provider.PermissionState{}, false
	}
	return state, true
}
