// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/trackit/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing task, habit, and dashboard tools.
func NewHandler(cfg Config, services common.Services) (*Handler, error) {
	if services == nil {
		return nil, fmt.Errorf("trackit services are required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerTaskTools(mcpSrv, services)
	registerHabitTools(mcpSrv, services)
	registerDashboardTool(mcpSrv, services)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "trackit"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerTaskTools registers task list/create/toggle/delete tools.
func registerTaskTools(srv *mcpserver.MCPServer, tasks common.TaskService) {
	srv.AddTool(
		mcp.NewTool(
			"trackit.list_tasks",
			mcp.WithDescription("List tasks, optionally narrowed to one view, category, or priority."),
			mcp.WithString("view", mcp.Description("Task view"), mcp.Enum(common.SupportedViews()...)),
			mcp.WithString("category", mcp.Description("Category name, case-insensitive")),
			mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum("LOW", "MEDIUM", "HIGH")),
			mcp.WithNumber("days", mcp.Description("Upcoming window in days")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := tasks.ListTasks(ctx, common.ListTasksRequest{
				View:     req.GetString("view", ""),
				Category: req.GetString("category", ""),
				Priority: req.GetString("priority", ""),
				Days:     req.GetInt("days", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_tasks", map[string]any{"tasks": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"trackit.create_task",
			mcp.WithDescription("Create one task."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("due_date", mcp.Required(), mcp.Description("Due date as YYYY-MM-DD or RFC3339")),
			mcp.WithString("description", mcp.Description("Markdown description")),
			mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum("LOW", "MEDIUM", "HIGH")),
			mcp.WithString("repeat_type", mcp.Description("Repeat cadence"), mcp.Enum("NONE", "DAILY", "WEEKLY", "MONTHLY")),
			mcp.WithString("category", mcp.Description("Category name")),
			mcp.WithNumber("estimated_hours", mcp.Description("Estimated effort in hours")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			due, err := req.RequireString("due_date")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := tasks.CreateTask(ctx, common.CreateTaskRequest{
				Title:       title,
				DueDate:     due,
				Description: req.GetString("description", ""),
				Priority:    req.GetString("priority", ""),
				RepeatType:  req.GetString("repeat_type", ""),
				Category:    req.GetString("category", ""),
				Hours:       req.GetFloat("estimated_hours", 0),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("create_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"trackit.toggle_task",
			mcp.WithDescription("Flip the completed flag of one task."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := tasks.ToggleTask(ctx, int64(id))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("toggle_task", task)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"trackit.delete_task",
			mcp.WithDescription("Delete one task."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := tasks.DeleteTask(ctx, int64(id)); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_task", map[string]any{"deleted": id})
		},
	)
}

// registerHabitTools registers habit list/log tools.
func registerHabitTools(srv *mcpserver.MCPServer, habits common.HabitService) {
	srv.AddTool(
		mcp.NewTool(
			"trackit.list_habits",
			mcp.WithDescription("List habits with their current streaks."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := habits.ListHabits(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_habits", map[string]any{"habits": rows})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"trackit.log_habit",
			mcp.WithDescription("Log one occurrence of a habit for today."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Habit id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			habit, err := habits.LogHabit(ctx, int64(id))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("log_habit", habit)
		},
	)
}

// registerDashboardTool registers the `trackit.dashboard` tool.
func registerDashboardTool(srv *mcpserver.MCPServer, dashboard common.DashboardReader) {
	srv.AddTool(
		mcp.NewTool(
			"trackit.dashboard",
			mcp.WithDescription("Return dashboard totals, recent items, and the weekly activity series."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			data, err := dashboard.Dashboard(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("dashboard", data)
		},
	)
}

// jsonResult encodes one structured tool payload.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps adapter errors to prefixed tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrUnauthenticated):
		return mcp.NewToolResultError("unauthenticated: " + err.Error())
	case errors.Is(err, common.ErrUpstream):
		return mcp.NewToolResultError("upstream_error: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
