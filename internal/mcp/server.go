// Package mcp exposes the selection engine and task queries as Model
// Context Protocol tools, so an assistant can drive the same selection a
// user sees.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/NotNullDev/nanomgmt/internal/logging"
	"github.com/NotNullDev/nanomgmt/internal/selection"
	"github.com/NotNullDev/nanomgmt/internal/service"
)

const serverInstructions = `nanomgmt tracks hours logged against project activities.
Call get_selection first: tasks are always read through the current project, team and activity selection.
Use select to change it, build_query to preview the record filter, then list_tasks.`

type Config struct {
	Engine    *selection.Engine
	Tasks     service.TaskService
	Dashboard service.DashboardService
	Logger    *slog.Logger
	Version   string
}

// NewServer creates an MCP server with every nanomgmt tool registered.
func NewServer(cfg Config) *sdkmcp.Server {
	log := logging.OrDiscard(cfg.Logger)
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "nanomgmt",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       log,
	})
	server.AddReceivingMiddleware(trafficLoggingMiddleware(log))

	h := &handlers{engine: cfg.Engine, tasks: cfg.Tasks, dashboard: cfg.Dashboard}
	registerTools(server, h)
	return server
}

// Run serves on stdin/stdout until ctx is done or the client disconnects.
func Run(ctx context.Context, server *sdkmcp.Server) error {
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}

func trafficLoggingMiddleware(logger *slog.Logger) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}
			logger.Debug("mcp request", "method", method, "params", formatPayload(req.GetParams()))
			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}
			if err != nil {
				logger.Debug("mcp response", "method", method, "error", err)
			} else {
				logger.Debug("mcp response", "method", method, "result", formatPayload(result))
			}
			return result, err
		}
	}
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
