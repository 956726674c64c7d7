// Package provider abstracts the platform-owned health store behind a
// single HealthProvider contract with one concrete variant per
// platform, selected once at startup.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/claude/healthsync/internal/metrics"
)

// Platform identifies the health store variant.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Detect picks a platform from the runtime OS. Deployments normally
// set the platform explicitly in config; this is the fallback.
func Detect() Platform {
	switch runtime.GOOS {
	case "darwin", "ios":
		return PlatformIOS
	default:
		return PlatformAndroid
	}
}

// AccessType is the direction of a permission scope.
type AccessType string

const (
	AccessRead  AccessType = "read"
	AccessWrite AccessType = "write"
)

// Scope is one (access, kind) permission pair.
type Scope struct {
	Access AccessType   `json:"access"`
	Kind   metrics.Kind `json:"kind"`
}

// DefaultScopes returns read+write scopes for every metric kind.
func DefaultScopes() []Scope {
	scopes := make([]Scope, 0, len(metrics.AllKinds)*2)
	for _, kind := range metrics.AllKinds {
		scopes = append(scopes, Scope{AccessRead, kind}, Scope{AccessWrite, kind})
	}
	return scopes
}

// PermissionState is the observed permission status. It is re-queried
// rather than cached as truth: the user can revoke access outside the
// app at any time.
type PermissionState struct {
	Granted       bool    `json:"granted"`
	GrantedScopes []Scope `json:"granted_scopes"`
}

// Availability is the platform SDK's availability status.
type Availability int

const (
	StatusUnavailable Availability = iota
	StatusUpdateRequired
	StatusAvailable
)

// Sentinel errors shared across providers. Per-metric read
// failures are handled locally and never surface as these.
var (
	// ErrPlatformUnavailable means the platform health service is not
	// installed or enabled; not retryable without user action.
	ErrPlatformUnavailable = errors.New("platform health service unavailable")
	// ErrPermissionDenied means the store refused access; recoverable
	// through the settings surface.
	ErrPermissionDenied = errors.New("health permission denied")
)

// PermissionError carries the denied scopes and the remediation the
// caller should offer instead of retrying silently.
type PermissionError struct {
	Scopes      []Scope
	Remediation string
}

// RemediationOpenSettings tells the caller to offer a deep link into
// the platform's health-permission settings.
const RemediationOpenSettings = "open-settings"

func (e *PermissionError) Error() string {
	return fmt.Sprintf("health permission denied for %d scope(s), remediation: %s",
		len(e.Scopes), e.Remediation)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

// SDK is the consumed platform health capability. Implementations wrap
// the actual platform store (on-device bridge, test fake).
type SDK interface {
	Initialize(ctx context.Context) error
	AvailabilityStatus(ctx context.Context) Availability
	RequestPermission(ctx context.Context, scopes []Scope) ([]Scope, error)
	ReadRecords(ctx context.Context, kind metrics.Kind, start, end time.Time) ([]metrics.Record, error)
	InsertRecords(ctx context.Context, recs []metrics.Record) error
	OpenSettings(ctx context.Context) error
}

// HealthProvider is the platform-facing contract the rest of the
// system depends on.
type HealthProvider interface {
	// Initialize opens the platform health service. Idempotent; success
	// is cached so repeated calls are cheap no-ops.
	Initialize(ctx context.Context) error
	// IsAvailable queries SDK availability without side effects.
	IsAvailable(ctx context.Context) bool
	// RequestPermissions issues the platform permission prompt.
	RequestPermissions(ctx context.Context, scopes []Scope) (PermissionState, error)
	// CheckPermissions performs a real check by attempting a bounded
	// low-cost read, not by trusting the platform's claimed-permission
	// API.
	CheckPermissions(ctx context.Context) (PermissionState, error)
	// ReadDailyData aggregates the given calendar day. Per-metric read
	// failures substitute the kind's default; a permission-shaped
	// failure escalates as ErrPermissionDenied.
	ReadDailyData(ctx context.Context, date time.Time) (*metrics.DailySnapshot, error)
	// WriteHealthData converts present fields to platform records and
	// submits one batched write. Returns false on failure rather than
	// an error so callers can distinguish "declined" from "crashed".
	WriteHealthData(ctx context.Context, req metrics.WriteRequest) bool
	// OpenSettings deep-links to the health-permission settings
	// surface. Best effort; failures are logged, never returned.
	OpenSettings(ctx context.Context)
	// Platform names the variant.
	Platform() Platform
}

// Select returns the provider variant for the platform. This is the
// single selection point; everything downstream holds the interface.
func Select(platform Platform, sdk SDK, log *slog.Logger) (HealthProvider, error) {
	switch platform {
	case PlatformAndroid:
		return NewConnectProvider(sdk, log), nil
	case PlatformIOS:
		return NewHealthKitProvider(sdk, log), nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", platform)
	}
}
