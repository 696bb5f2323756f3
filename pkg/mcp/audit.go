package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
)

// maxLoggedParamLength bounds each argument value written to the log.
const maxLoggedParamLength = 200

// CallLogger logs every tool call with its duration and outcome.
type CallLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewCallLogger creates a CallLogger.
func NewCallLogger(logger *zap.Logger) *CallLogger {
	return &CallLogger{logger: logger.Named("calls")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *CallLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *CallLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *CallLogger) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", a.elapsed(id)),
		zap.Any("params", sanitizeParams(req.Params.Arguments)),
	}
	if result != nil && result.IsError {
		a.logger.Info("Tool call returned an error result", append(fields, zap.String("result", summarizeResult(result)))...)
		return
	}
	a.logger.Info("Tool call completed", fields...)
}

func (a *CallLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}

	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	a.logger.Warn("Tool call failed",
		zap.String("tool", req.Params.Name),
		zap.Duration("duration", a.elapsed(id)),
		zap.Any("params", sanitizeParams(req.Params.Arguments)),
		zap.String("error", logging.SanitizeError(err)))
}

func (a *CallLogger) elapsed(id any) time.Duration {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return time.Since(v.(time.Time))
	}
	return 0
}

// sanitizeParams truncates long string arguments.
func sanitizeParams(args any) map[string]any {
	m, ok := args.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = logging.TruncateString(s, maxLoggedParamLength)
			continue
		}
		out[k] = v
	}
	return out
}

// summarizeResult returns the first text content of an error result.
func summarizeResult(result *mcplib.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(mcplib.TextContent); ok {
			var resp struct {
				Code string `json:"code"`
			}
			if json.Unmarshal([]byte(text.Text), &resp) == nil && resp.Code != "" {
				return resp.Code
			}
			return logging.TruncateString(text.Text, maxLoggedParamLength)
		}
	}
	return ""
}
