package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Physio", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Physio home-exercise server. Query the exercise catalog, recorded sessions, daily progress against the three-exercise routine, and rep trends over time. Dates are YYYY-MM-DD or RFC 3339."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolGetDailyProgress, Handler: h.getDailyProgress},
		server.ServerTool{Tool: toolGetSessionHistory, Handler: h.getSessionHistory},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetRepTrend, Handler: h.getRepTrend},
		server.ServerTool{Tool: toolComparePeriods, Handler: h.comparePeriods},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
		server.ServerResource{Resource: resToday, Handler: h.today},
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resExerciseCatalog = mcp.NewResource(
	"physio://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("The supported exercises with their instructions and rep phases"),
	mcp.WithMIMEType("application/json"),
)

var resToday = mcp.NewResource(
	"physio://today",
	"Today",
	mcp.WithResourceDescription("Today's progress and the sessions recorded so far"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSessions = mcp.NewResource(
	"physio://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("Sessions from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)
