package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("HealthSync", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("HealthSync health data server. Query daily snapshots, weekly aggregates, the rolling archive, widget projections, and the current permission state. All values are already unit-normalized (distance in km, hydration in mL, height in cm)."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetDailySnapshot, Handler: h.getDailySnapshot},
		server.ServerTool{Tool: toolGetWeeklyData, Handler: h.getWeeklyData},
		server.ServerTool{Tool: toolGetProfileReport, Handler: h.getProfileReport},
		server.ServerTool{Tool: toolGetWidgetProjection, Handler: h.getWidgetProjection},
		server.ServerTool{Tool: toolCheckPermissions, Handler: h.checkPermissions},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resTodaySnapshot, Handler: h.todaySnapshot},
		server.ServerResource{Resource: resProfileReport, Handler: h.profileReport},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resTodaySnapshot = mcp.NewResource(
	"healthsync://daily/today",
	"Today's Snapshot",
	mcp.WithResourceDescription("Aggregated health metrics for the current calendar day"),
	mcp.WithMIMEType("application/json"),
)

var resProfileReport = mcp.NewResource(
	"healthsync://archive/report",
	"Profile Report",
	mcp.WithResourceDescription("Current week, recent archived weeks, and rolling averages"),
	mcp.WithMIMEType("application/json"),
)
