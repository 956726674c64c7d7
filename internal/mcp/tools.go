package mcp

import (
	"context"
	"time"

	"github.com/claude/healthsync/internal/metrics"
	"github.com/mark3labs/mcp-go/mcp"
)

// parseDateArg parses an optional YYYY-MM-DD argument. Empty means the
// zero time, which the service treats as today.
func parseDateArg(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(metrics.DateLayout, s)
}

// --- Tool definitions ---

var toolGetDailySnapshot = mcp.NewTool("get_daily_snapshot",
	mcp.WithDescription("Aggregated health metrics for one calendar day: steps, heart rate, distance (km), weight (kg), height (cm), blood pressure, body temperature, hydration (mL), and sleep (hours). Point metrics are null when no reading exists."),
	mcp.WithString("date", mcp.Description("Calendar day (YYYY-MM-DD). Defaults to today.")),
)

var toolGetWeeklyData = mcp.NewTool("get_weekly_data",
	mcp.WithDescription("Per-metric series of 7 daily values ending on the given day. Days that fail to load are zero-filled so the series always has 7 entries."),
	mcp.WithString("end", mcp.Description("Last day of the range (YYYY-MM-DD). Defaults to today.")),
)

var toolGetProfileReport = mcp.NewTool("get_profile_report",
	mcp.WithDescription("The rolling archive: current week, up to 12 recent archived weeks, and two-level rolling averages for steps, heart rate, hydration, and body temperature."),
)

var toolGetWidgetProjection = mcp.NewTool("get_widget_projection",
	mcp.WithDescription("The (current value, goal) pair displayed by home-screen widgets. Falls back to the last cached value when the platform store is unreachable."),
	mcp.WithString("widget", mcp.Required(), mcp.Description("Which widget to project"), mcp.Enum("steps", "hydration")),
)

var toolCheckPermissions = mcp.NewTool("check_permissions",
	mcp.WithDescription("The live health-permission state, verified by a real probe read rather than the platform's claimed-permission API."),
)

// --- Tool handlers ---

func (h *handlers) getDailySnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := parseDateArg(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format, want YYYY-MM-DD: " + err.Error()), nil
	}

	snap, err := h.ds.DailySnapshot(ctx, date)
	if err != nil {
		h.log.Error("mcp get_daily_snapshot", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(snap)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWeeklyData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	end, err := parseDateArg(req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format, want YYYY-MM-DD: " + err.Error()), nil
	}

	data, err := h.ds.WeeklyData(ctx, end)
	if err != nil {
		h.log.Error("mcp get_weekly_data", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProfileReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := h.ds.ProfileReport(ctx)
	if err != nil {
		h.log.Error("mcp get_profile_report", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(report)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWidgetProjection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("widget")
	if err != nil {
		return mcp.NewToolResultError("widget parameter is required"), nil
	}
	if name != "steps" && name != "hydration" {
		return mcp.NewToolResultError("unknown widget: " + name), nil
	}

	proj, err := h.ds.WidgetProjection(ctx, name)
	if err != nil {
		h.log.Error("mcp get_widget_projection", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(proj)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) checkPermissions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := h.ds.Permissions(ctx)
	if err != nil {
		h.log.Error("mcp check_permissions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(state)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
