package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/target"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/ddl"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/repositories"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/assessment"
)

const maxListLimit = 100

// ValidatorFactory connects a dry-run validator for a dialect.
type ValidatorFactory func(ctx context.Context, d ddl.Dialect) (target.Validator, error)

// AssessmentToolDeps contains dependencies for the assessment tools.
type AssessmentToolDeps struct {
	Assessor assessment.Service
	Store    repositories.AssessmentRepository
	Logger   *zap.Logger

	// Declared container metadata; assess_containers looks names up here.
	Containers []models.ContainerMetadata

	// Dialect used by generate_ddl when the caller names none.
	Dialect ddl.Dialect

	// NewValidator is nil when no target is configured.
	NewValidator ValidatorFactory
}

// RegisterAssessmentTools registers assess_containers, get_assessment,
// list_assessments and generate_ddl.
func RegisterAssessmentTools(s *server.MCPServer, deps *AssessmentToolDeps) {
	registerAssessContainersTool(s, deps)
	registerGetAssessmentTool(s, deps)
	registerListAssessmentsTool(s, deps)
	registerGenerateDDLTool(s, deps)
}

// ============================================================================
// assess_containers
// ============================================================================

type containerStatus struct {
	Container    string                 `json:"container"`
	Status       models.ContainerStatus `json:"status"`
	QualityScore *float64               `json:"quality_score,omitempty"`
	Tables       int                    `json:"tables"`
	Error        string                 `json:"error,omitempty"`
}

type assessResponse struct {
	models.AssessmentSummary
	Containers             []containerStatus        `json:"containers"`
	SharedSchemas          int                      `json:"shared_schemas"`
	EstimatedMigrationDays float64                  `json:"estimated_migration_days"`
	Risks                  []string                 `json:"risks"`
	Warnings               []models.AnalysisWarning `json:"warnings,omitempty"`
}

func registerAssessContainersTool(s *server.MCPServer, deps *AssessmentToolDeps) {
	tool := mcp.NewTool(
		"assess_containers",
		mcp.WithDescription(
			"Sample the named containers, analyze schema and data quality, propose a relational mapping "+
				"and score migration complexity. The result is stored; use get_assessment for the full report "+
				"and generate_ddl for the target schema. Omit containers to assess every configured container.",
		),
		mcp.WithString(
			"containers",
			mcp.Description("Comma separated container names (default: all configured or discovered containers)"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		containers := source.SelectMetadata(deps.Containers, SplitList(getOptionalString(req, "containers")))

		a, err := deps.Assessor.Assess(ctx, containers)
		if err != nil {
			if result := NewInputErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("assessment failed: %w", err)
		}

		if err := deps.Store.Save(ctx, a); err != nil {
			return nil, fmt.Errorf("failed to store assessment: %w", err)
		}
		deps.Logger.Info("Stored assessment",
			zap.String("assessment_id", a.ID),
			zap.Int("containers", len(a.Containers)))

		return jsonResult(buildAssessResponse(a))
	})
}

func buildAssessResponse(a *models.Assessment) assessResponse {
	resp := assessResponse{
		AssessmentSummary:      a.Summary(),
		Containers:             make([]containerStatus, 0, len(a.Containers)),
		SharedSchemas:          len(a.SharedSchemas),
		EstimatedMigrationDays: a.Complexity.EstimatedMigrationDays,
		Risks:                  a.Complexity.Risks,
		Warnings:               a.Warnings,
	}
	for _, c := range a.Containers {
		status := containerStatus{Container: c.Container, Status: c.Status, Error: c.Error}
		if c.Summary != nil {
			score := c.Summary.OverallQualityScore
			status.QualityScore = &score
		}
		if c.Mapping != nil {
			status.Tables = c.Mapping.TableCount()
		}
		resp.Containers = append(resp.Containers, status)
	}
	if resp.Risks == nil {
		resp.Risks = []string{}
	}
	return resp
}

// ============================================================================
// get_assessment / list_assessments
// ============================================================================

func registerGetAssessmentTool(s *server.MCPServer, deps *AssessmentToolDeps) {
	tool := mcp.NewTool(
		"get_assessment",
		mcp.WithDescription("Return a stored assessment: per-container profiles, quality issues, mappings, shared schemas and complexity."),
		mcp.WithString(
			"id",
			mcp.Required(),
			mcp.Description("Assessment ID returned by assess_containers or list_assessments"),
		),
		mcp.WithString(
			"container",
			mcp.Description("Return only this container's assessment"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		a, errResult, err := deps.load(ctx, req)
		if errResult != nil || err != nil {
			return errResult, err
		}

		if name := getOptionalString(req, "container"); name != "" {
			c, ok := a.Container(name)
			if !ok {
				return NewErrorResult("container_not_found",
					fmt.Sprintf("assessment %s has no container %q", a.ID, name)), nil
			}
			return jsonResult(c)
		}
		return jsonResult(a)
	})
}

func registerListAssessmentsTool(s *server.MCPServer, deps *AssessmentToolDeps) {
	tool := mcp.NewTool(
		"list_assessments",
		mcp.WithDescription("List stored assessments, newest first."),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Max assessments to return (default: %d, max: %d)", repositories.DefaultListLimit, maxListLimit)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := repositories.DefaultListLimit
		if v, ok := getOptionalFloat(req, "limit"); ok && v > 0 {
			limit = int(v)
		}
		limit = min(limit, maxListLimit)

		list, err := deps.Store.List(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list assessments: %w", err)
		}
		return jsonResult(map[string]any{"assessments": list, "count": len(list)})
	})
}

// load fetches the assessment named by the id argument.
func (d *AssessmentToolDeps) load(ctx context.Context, req mcp.CallToolRequest) (*models.Assessment, *mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return nil, NewErrorResult("invalid_parameters", err.Error()), nil
	}
	a, err := d.Store.Get(ctx, trimString(id))
	if err != nil {
		if result := NewInputErrorResult(err); result != nil {
			return nil, result, nil
		}
		return nil, nil, fmt.Errorf("failed to load assessment: %w", err)
	}
	return a, nil, nil
}

// ============================================================================
// generate_ddl
// ============================================================================

type ddlResponse struct {
	AssessmentID   string          `json:"assessment_id"`
	Dialect        ddl.Dialect     `json:"dialect"`
	StatementCount int             `json:"statement_count"`
	Statements     []ddl.Statement `json:"statements"`
	Script         string          `json:"script"`
	Validated      bool            `json:"validated"`
}

func registerGenerateDDLTool(s *server.MCPServer, deps *AssessmentToolDeps) {
	tool := mcp.NewTool(
		"generate_ddl",
		mcp.WithDescription(
			"Generate CREATE TABLE, constraint and index statements for a stored assessment. "+
				"With validate=true the script is executed against the configured target inside a "+
				"transaction that is always rolled back.",
		),
		mcp.WithString(
			"id",
			mcp.Required(),
			mcp.Description("Assessment ID"),
		),
		mcp.WithString(
			"dialect",
			mcp.Description("sqlserver or postgres (default: configured target dialect)"),
			mcp.Enum("sqlserver", "postgres"),
		),
		mcp.WithBoolean(
			"validate",
			mcp.Description("Dry-run the script against the configured target (default: false)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		d := deps.Dialect
		if name := getOptionalString(req, "dialect"); name != "" {
			parsed, err := ddl.ParseDialect(name)
			if err != nil {
				return NewInputErrorResult(err), nil
			}
			d = parsed
		}

		a, errResult, err := deps.load(ctx, req)
		if errResult != nil || err != nil {
			return errResult, err
		}

		script, err := ddl.Generate(a, d)
		if err != nil {
			if result := NewInputErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("failed to generate DDL: %w", err)
		}

		resp := ddlResponse{
			AssessmentID:   a.ID,
			Dialect:        d,
			StatementCount: len(script.Statements),
			Statements:     script.Statements,
			Script:         script.String(),
		}
		if resp.Statements == nil {
			resp.Statements = []ddl.Statement{}
		}

		if getOptionalBool(req, "validate", false) {
			if result, err := deps.validate(ctx, d, script); result != nil || err != nil {
				return result, err
			}
			resp.Validated = true
		}
		return jsonResult(resp)
	})
}

// validate dry-runs script. A statement the target rejects comes back as an
// error result naming it.
func (d *AssessmentToolDeps) validate(ctx context.Context, dialect ddl.Dialect, script *ddl.Script) (*mcp.CallToolResult, error) {
	if d.NewValidator == nil {
		return NewErrorResult("validation_unavailable", "no target database is configured for dry runs"), nil
	}

	v, err := d.NewValidator(ctx, dialect)
	if err != nil {
		if result := NewInputErrorResult(err); result != nil {
			return result, nil
		}
		return nil, fmt.Errorf("failed to connect to target: %w", err)
	}
	defer v.Close()

	err = v.Validate(ctx, script.SQL())
	var stmtErr *target.StatementError
	switch {
	case err == nil:
		return nil, nil
	case errors.As(err, &stmtErr):
		code := SQLUserErrorCode(stmtErr.Err)
		if code == "" {
			code = "statement_rejected"
		}
		st := script.Statements[stmtErr.Index]
		return NewErrorResultWithDetails(code, ExtractSQLErrorMessage(stmtErr.Err), map[string]any{
			"index":     stmtErr.Index,
			"kind":      st.Kind,
			"object":    st.Object,
			"statement": st.SQL,
		}), nil
	default:
		return nil, fmt.Errorf("dry run failed: %w", err)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
