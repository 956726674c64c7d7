package mcp

import (
	"context"
	"time"

	"github.com/claude/healthsync/internal/archive"
	"github.com/claude/healthsync/internal/metrics"
	"github.com/claude/healthsync/internal/provider"
	"github.com/claude/healthsync/internal/service"
	"github.com/claude/healthsync/internal/widget"
)

// DataSource abstracts the data layer for MCP tools. Both Local (in-process)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	DailySnapshot(ctx context.Context, date time.Time) (*metrics.DailySnapshot, error)
	WeeklyData(ctx context.Context, end time.Time) (*metrics.WeeklyData, error)
	ProfileReport(ctx context.Context) (*archive.ProfileReport, error)
	WidgetProjection(ctx context.Context, name string) (widget.Projection, error)
	Permissions(ctx context.Context) (provider.PermissionState, error)
}

// Local serves MCP tools from the in-process service, for the mode
// where the MCP server runs inside the main binary.
type Local struct {
	svc     *service.Service
	archive *archive.Archive
	bridge  *widget.Bridge
}

// Compile-time check: *Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

// NewLocal creates a Local data source.
func NewLocal(svc *service.Service, arch *archive.Archive, bridge *widget.Bridge) *Local {
	return &Local{svc: svc, archive: arch, bridge: bridge}
}

func (l *Local) DailySnapshot(ctx context.Context, date time.Time) (*metrics.DailySnapshot, error) {
	return l.svc.LoadDailyData(ctx, date)
}

func (l *Local) WeeklyData(ctx context.Context, end time.Time) (*metrics.WeeklyData, error) {
	return l.svc.LoadWeeklyData(ctx, end)
}

func (l *Local) ProfileReport(ctx context.Context) (*archive.ProfileReport, error) {
	return l.archive.Report(ctx)
}

func (l *Local) WidgetProjection(ctx context.Context, name string) (widget.Projection, error) {
	switch name {
	case "hydration":
		return l.bridge.HydrationProjection(ctx), nil
	default:
		return l.bridge.StepsProjection(ctx), nil
	}
}

func (l *Local) Permissions(ctx context.Context) (provider.PermissionState, error) {
	return l.svc.CheckPermissions(ctx)
}
