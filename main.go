package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/metrics"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source"
	_ "github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source/file"
	_ "github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source/mongodb"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/target"
	_ "github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/target/mssql"
	_ "github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/target/postgres"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/database"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/ddl"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/mcp"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/mcp/tools"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/repositories"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/assessment"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `usage: assessor <command> [flags]

commands:
  assess   sample containers and write an assessment report
  ddl      generate (and optionally dry-run) DDL from a saved report
  mcp      serve the assessment tools over MCP (stdio or HTTP)
  version  print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "assess":
		err = runAssess(ctx, os.Args[2:])
	case "ddl":
		err = runDDL(ctx, os.Args[2:])
	case "mcp":
		err = runMCP(ctx, os.Args[2:])
	case "version":
		fmt.Println(Version)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// ============================================================================
// Shared setup
// ============================================================================

// app holds what both commands need. close releases everything opened.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	source   source.SampleSource
	assessor assessment.Service
}

func setup(ctx context.Context, configPath, containersPath string) (*app, error) {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if containersPath != "" {
		declared, err := source.LoadMetadata(containersPath)
		if err != nil {
			return nil, err
		}
		cfg.Containers = source.MergeMetadata(declared, cfg.Containers)
	}

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("source", cfg.Source.Type),
		zap.String("metrics", cfg.Metrics.Type),
		zap.String("dialect", cfg.Target.Dialect),
		zap.Int("containers", len(cfg.Containers)),
		zap.Bool("store", cfg.Store.Enabled))

	src, err := source.New(ctx, cfg.Source, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}

	provider, err := metrics.New(ctx, cfg.Metrics, logger)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		source:   src,
		assessor: assessment.NewService(cfg.Analysis, src, provider, logger),
	}, nil
}

func (r *app) close() {
	if err := r.source.Close(); err != nil {
		r.logger.Warn("Failed to close source", zap.String("error", logging.SanitizeError(err)))
	}
	_ = r.logger.Sync()
}

// ============================================================================
// assess
// ============================================================================

func runAssess(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("assess", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration")
	containersPath := fs.String("containers", "", "optional standalone container metadata file")
	only := fs.String("only", "", "comma-separated container names to assess instead of all declared")
	out := fs.String("out", "", "report path; .yaml or .yml writes YAML, anything else JSON (default stdout)")
	ddlPath := fs.String("ddl", "", "write the generated DDL script to this path")
	dialectFlag := fs.String("dialect", "", "DDL dialect, overrides target.dialect")
	validate := fs.Bool("validate", false, "dry-run the DDL against TARGET_DSN and roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(ctx, *configPath, *containersPath)
	if err != nil {
		return err
	}
	defer rt.close()

	containers := source.SelectMetadata(rt.cfg.Containers, tools.SplitList(*only))
	started := time.Now()
	result, err := rt.assessor.Assess(ctx, containers)
	if err != nil {
		return fmt.Errorf("assessment failed: %w", err)
	}
	rt.logger.Info("Assessment finished",
		zap.String("id", result.ID),
		zap.Int("containers", len(result.Containers)),
		zap.Bool("ready", result.ReadyForMigration),
		zap.String("complexity", string(result.Complexity.OverallComplexity)),
		zap.Duration("elapsed", time.Since(started)))

	if err := writeReport(result, *out); err != nil {
		return err
	}

	if *ddlPath == "" && !*validate {
		return nil
	}
	dialectName := rt.cfg.Target.Dialect
	if *dialectFlag != "" {
		dialectName = *dialectFlag
	}
	return emitDDL(ctx, rt.cfg.Target, rt.logger, result, dialectName, *ddlPath, *validate)
}

func writeReport(a *models.Assessment, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = toYAML(a)
	default:
		data, err = json.MarshalIndent(a, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// toYAML goes through JSON so the YAML report keeps the JSON field names.
func toYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

// emitDDL generates the script for a finished assessment and writes it to
// path. With no path the script goes to stdout unless validate is set, in
// which case it is only dry-run on the target.
func emitDDL(
	ctx context.Context,
	cfg config.TargetConfig,
	logger *zap.Logger,
	a *models.Assessment,
	dialectName, path string,
	validate bool,
) error {
	dialect, err := ddl.ParseDialect(dialectName)
	if err != nil {
		return err
	}
	script, err := ddl.Generate(a, dialect)
	if err != nil {
		return fmt.Errorf("failed to generate DDL: %w", err)
	}

	switch {
	case path != "":
		if err := os.WriteFile(path, []byte(script.String()), 0o644); err != nil {
			return fmt.Errorf("failed to write DDL: %w", err)
		}
		logger.Info("DDL written",
			zap.String("path", path),
			zap.String("dialect", string(dialect)),
			zap.Int("statements", len(script.Statements)))
	case !validate:
		if _, err := fmt.Fprint(os.Stdout, script.String()); err != nil {
			return err
		}
	}

	if !validate {
		return nil
	}
	cfg.Dialect = string(dialect)
	v, err := target.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to target: %w", err)
	}
	defer v.Close()

	if err := v.Validate(ctx, script.SQL()); err != nil {
		var stmtErr *target.StatementError
		if errors.As(err, &stmtErr) && stmtErr.Index > 0 && stmtErr.Index <= len(script.Statements) {
			s := script.Statements[stmtErr.Index-1]
			logger.Error("Target rejected DDL",
				zap.Int("index", stmtErr.Index),
				zap.String("kind", string(s.Kind)),
				zap.String("object", s.Object))
		}
		return err
	}
	logger.Info("DDL accepted by target; changes rolled back",
		zap.String("dialect", string(dialect)),
		zap.Int("statements", len(script.Statements)))
	return nil
}

// ============================================================================
// ddl
// ============================================================================

func runDDL(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ddl", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration")
	reportPath := fs.String("report", "", "assessment report written by assess (.json, .yaml or .yml)")
	out := fs.String("out", "", "write the DDL script to this path (default stdout)")
	dialectFlag := fs.String("dialect", "", "DDL dialect, overrides target.dialect")
	validate := fs.Bool("validate", false, "dry-run the DDL against TARGET_DSN and roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *reportPath == "" {
		return errors.New("ddl requires -report")
	}

	cfg, err := config.Load(*configPath, Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := readReport(*reportPath)
	if err != nil {
		return err
	}
	dialectName := cfg.Target.Dialect
	if *dialectFlag != "" {
		dialectName = *dialectFlag
	}
	return emitDDL(ctx, cfg.Target, logger, a, dialectName, *out, *validate)
}

func readReport(path string) (*models.Assessment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
		}
		if data, err = json.Marshal(generic); err != nil {
			return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
		}
	}
	var a models.Assessment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &a, nil
}

// ============================================================================
// mcp
// ============================================================================

func runMCP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration")
	containersPath := fs.String("containers", "", "optional standalone container metadata file")
	httpAddr := fs.String("http", "", "serve streamable HTTP on this address instead of stdio")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(ctx, *configPath, *containersPath)
	if err != nil {
		return err
	}
	defer rt.close()

	store, storeKind, closeStore, err := openStore(ctx, rt.cfg.Store, rt.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	dialect, err := ddl.ParseDialect(rt.cfg.Target.Dialect)
	if err != nil {
		return err
	}

	deps := &tools.AssessmentToolDeps{
		Assessor:   rt.assessor,
		Store:      store,
		Logger:     rt.logger,
		Containers: rt.cfg.Containers,
		Dialect:    dialect,
	}
	if rt.cfg.Target.DSN != "" {
		deps.NewValidator = func(ctx context.Context, d ddl.Dialect) (target.Validator, error) {
			cfg := rt.cfg.Target
			cfg.Dialect = string(d)
			return target.New(ctx, cfg, rt.logger)
		}
	}

	srv := mcp.NewServer("migration-assessor", Version, rt.logger)
	tools.RegisterAssessmentTools(srv.MCP(), deps)
	tools.RegisterHealthTool(srv.MCP(), &tools.HealthToolDeps{
		Version:    Version,
		SourceType: rt.cfg.Source.Type,
		StoreType:  storeKind,
		Source:     rt.source,
		Store:      store,
	})

	return srv.Serve(ctx, *httpAddr)
}

// openStore returns the PostgreSQL repository when the store is enabled and
// an in-memory one otherwise.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (repositories.AssessmentRepository, string, func(), error) {
	if !cfg.Enabled {
		logger.Info("Assessment store disabled; results are kept in memory")
		return repositories.NewMemoryAssessmentRepository(), "memory", func() {}, nil
	}
	db, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to open assessment store: %w", err)
	}
	return repositories.NewAssessmentRepository(db), "postgres", db.Close, nil
}
