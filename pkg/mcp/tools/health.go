package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/repositories"
)

const healthCheckTimeout = 5 * time.Second

// HealthToolDeps contains dependencies for the health tool. Source and Store
// are checked when set.
type HealthToolDeps struct {
	Version    string
	SourceType string
	StoreType  string
	Source     source.SampleSource
	Store      repositories.AssessmentRepository
}

type componentHealth struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResult struct {
	Status  string          `json:"status"`
	Version string          `json:"version"`
	Source  componentHealth `json:"source"`
	Store   componentHealth `json:"store"`
}

// RegisterHealthTool adds a health check tool to the MCP server. It reports
// the version and whether the sample source and assessment store respond.
func RegisterHealthTool(s *server.MCPServer, deps *HealthToolDeps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version, and whether the sample source and assessment store respond"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()

		result := healthResult{
			Status:  "ok",
			Version: deps.Version,
			Source:  checkComponent(deps.SourceType, deps.Source != nil, func() error { _, err := deps.Source.ListContainers(ctx); return err }),
			Store:   checkComponent(deps.StoreType, deps.Store != nil, func() error { _, err := deps.Store.List(ctx, 1); return err }),
		}
		if result.Source.Status == "error" || result.Store.Status == "error" {
			result.Status = "degraded"
		}
		return jsonResult(result)
	})
}

func checkComponent(kind string, present bool, check func() error) componentHealth {
	h := componentHealth{Type: kind, Status: "unknown"}
	if !present {
		return h
	}
	if err := check(); err != nil {
		h.Status = "error"
		h.Error = logging.SanitizeError(err)
		return h
	}
	h.Status = "ok"
	return h
}
