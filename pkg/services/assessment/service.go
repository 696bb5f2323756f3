package assessment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/metrics"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/adapters/source"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/complexity"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/dedup"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/inference"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/mapping"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/quality"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/workerpool"
)

// Service runs a complete assessment over a set of containers.
type Service interface {
	// Assess analyzes every container and returns the finished assessment.
	// With no containers given, they are discovered from the sample source.
	// Container failures are reported inside the assessment; only invalid
	// options and cancellation return an error, and then no assessment.
	Assess(ctx context.Context, containers []models.ContainerMetadata) (*models.Assessment, error)
}

type service struct {
	opts       config.AnalysisOptions
	source     source.SampleSource
	metrics    metrics.Provider
	pool       *workerpool.Pool
	inferencer inference.Inferencer
	analyzer   quality.Analyzer
	aggregator quality.Aggregator
	mapper     mapping.Mapper
	dedup      dedup.Deduplicator
	scorer     complexity.Scorer
	now        func() time.Time
	logger     *zap.Logger
}

// NewService wires the analysis pipeline. metricsProvider may be nil.
func NewService(
	opts config.AnalysisOptions,
	src source.SampleSource,
	metricsProvider metrics.Provider,
	logger *zap.Logger,
) Service {
	return &service{
		opts:       opts,
		source:     src,
		metrics:    metricsProvider,
		pool:       workerpool.New(workerpool.Config{MaxConcurrent: opts.MaxConcurrentContainers}, logger),
		inferencer: inference.NewInferencer(opts, logger),
		analyzer:   quality.NewAnalyzer(opts, logger),
		aggregator: quality.NewAggregator(opts, logger),
		mapper:     mapping.NewMapper(opts, logger),
		dedup:      dedup.NewDeduplicator(opts.Mapping.IdentifierMaxLength, logger),
		scorer:     complexity.NewScorer(opts.Complexity, logger),
		now:        time.Now,
		logger:     logger.Named("assessment"),
	}
}

var _ Service = (*service)(nil)

func (s *service) Assess(ctx context.Context, containers []models.ContainerMetadata) (*models.Assessment, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}

	containers, err := s.resolveContainers(ctx, containers)
	if err != nil {
		return nil, err
	}

	start := s.now().UTC()
	s.logger.Info("Starting assessment",
		zap.Int("containers", len(containers)),
		zap.Int("sample_size", s.opts.SampleSize),
		zap.Int("max_concurrent", s.pool.MaxConcurrent()),
		zap.Bool("metrics", s.metrics != nil))

	items := make([]workerpool.WorkItem[models.ContainerAssessment], len(containers))
	for i, meta := range containers {
		items[i] = workerpool.WorkItem[models.ContainerAssessment]{
			ID: meta.Name,
			Execute: func(ctx context.Context) (models.ContainerAssessment, error) {
				return s.assessContainer(ctx, meta, start)
			},
		}
	}

	results := workerpool.ProcessOrdered(ctx, s.pool, items, func(completed, total int) {
		s.logger.Debug("Container progress",
			zap.Int("completed", completed),
			zap.Int("total", total))
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assessment cancelled: %w", err)
	}

	a := &models.Assessment{
		ID:            uuid.New().String(),
		CreatedAt:     start,
		Containers:    make([]models.ContainerAssessment, len(results)),
		SharedSchemas: []models.SharedSchema{},
	}
	for i, res := range results {
		if res.Err != nil {
			if isCancellation(ctx, res.Err) {
				return nil, fmt.Errorf("assessment cancelled: %w", res.Err)
			}
			a.Containers[i] = failed(containers[i], models.WarningContainerFailure, res.Err)
			continue
		}
		a.Containers[i] = res.Result
	}

	// Global join: every mapping is final before deduplication starts.
	shared, err := s.dedup.Deduplicate(ctx, a.Mappings())
	if err != nil {
		return nil, err
	}
	if shared != nil {
		a.SharedSchemas = shared
	}

	a.Complexity = s.scorer.Score(a)
	a.OverallQualityScore, a.ReadyForMigration = overall(a.Containers)
	for _, c := range a.Containers {
		a.Warnings = append(a.Warnings, c.Warnings...)
	}

	s.logger.Info("Assessment complete",
		zap.String("assessment_id", a.ID),
		zap.Int("containers", len(a.Containers)),
		zap.Int("shared_schemas", len(a.SharedSchemas)),
		zap.Float64("quality_score", a.OverallQualityScore),
		zap.String("complexity", string(a.Complexity.OverallComplexity)),
		zap.Bool("ready", a.ReadyForMigration),
		zap.Int("warnings", len(a.Warnings)),
		zap.Duration("elapsed", s.now().Sub(start)))
	return a, nil
}

// resolveContainers discovers containers when none are given and rejects
// empty or repeated names.
func (s *service) resolveContainers(ctx context.Context, containers []models.ContainerMetadata) ([]models.ContainerMetadata, error) {
	if len(containers) == 0 {
		discovered, err := s.source.ListContainers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to discover containers: %w", err)
		}
		containers = discovered
	}
	if len(containers) == 0 {
		return nil, &apperrors.ConfigurationError{Field: "containers", Reason: "no containers to assess"}
	}

	seen := make(map[string]bool, len(containers))
	for _, c := range containers {
		if strings.TrimSpace(c.Name) == "" {
			return nil, &apperrors.ConfigurationError{Field: "containers", Reason: "container name is required"}
		}
		if seen[c.Name] {
			return nil, &apperrors.ConfigurationError{Field: "containers", Reason: fmt.Sprintf("container %q listed twice", c.Name)}
		}
		seen[c.Name] = true
	}
	return containers, nil
}

// ============================================================================
// Per-container pipeline
// ============================================================================

// assessContainer runs fetch, inference, quality checks, aggregation and
// mapping for one container. Only cancellation is returned as an error;
// every other failure is recorded on the container.
func (s *service) assessContainer(ctx context.Context, meta models.ContainerMetadata, start time.Time) (models.ContainerAssessment, error) {
	ca := models.ContainerAssessment{
		Container: meta.Name,
		Status:    models.StatusCompleted,
		Metadata:  meta,
	}

	docs, err := s.source.FetchSample(ctx, meta.Name, s.opts.SampleSize)
	if err != nil {
		if isCancellation(ctx, err) {
			return ca, err
		}
		return failed(meta, models.WarningInputError, err), nil
	}

	profile, err := s.inferencer.Infer(ctx, meta.Name, docs)
	if err != nil {
		if isCancellation(ctx, err) {
			return ca, err
		}
		return failed(meta, models.WarningInputError, err), nil
	}
	ca.Profile = profile
	if profile.Partial {
		partial := &apperrors.PartialAnalysisWarning{
			Container: meta.Name,
			Skipped:   profile.Skipped,
			Total:     profile.TotalSampled,
			Threshold: s.opts.SkipRateThreshold,
		}
		ca.Degrade(models.WarningPartialAnalysis, partial.Error())
	}

	report, err := s.analyzer.Analyze(ctx, &quality.Input{
		Container: meta.Name,
		Documents: docs,
		Profile:   profile,
		Metadata:  meta,
		Now:       start,
	})
	if err != nil {
		return ca, err
	}
	ca.Quality = report
	if n := len(report.Failures); n > 0 {
		ca.Degrade(models.WarningCheckerFailure, fmt.Sprintf("%d quality checks failed; first: %s: %s",
			n, report.Failures[0].Checker, report.Failures[0].Message))
	}
	ca.Summary = s.aggregator.Summarize(report)

	m, err := s.mapper.Map(ctx, &mapping.Input{
		Container: meta.Name,
		Profile:   profile,
		Quality:   report,
		Metadata:  meta,
	})
	switch {
	case err == nil:
		ca.Mapping = m
		for _, w := range m.Warnings {
			ca.Warnings = append(ca.Warnings, models.AnalysisWarning{
				Container: meta.Name,
				Code:      models.WarningMapping,
				Message:   w,
			})
		}
	case isCancellation(ctx, err):
		return ca, err
	default:
		ca.Degrade(models.WarningInputError, fmt.Sprintf("no relational mapping: %v", err))
	}

	if s.metrics != nil {
		pm, err := s.metrics.ContainerMetrics(ctx, meta.Name)
		switch {
		case err == nil:
			ca.Metrics = pm
		case isCancellation(ctx, err):
			return ca, err
		default:
			s.logger.Warn("Performance metrics unavailable",
				zap.String("container", meta.Name),
				zap.Error(err))
			ca.Warnings = append(ca.Warnings, models.AnalysisWarning{
				Container: meta.Name,
				Code:      models.WarningMetrics,
				Message:   err.Error(),
			})
		}
	}

	s.logger.Info("Container assessed",
		zap.String("container", meta.Name),
		zap.String("status", string(ca.Status)),
		zap.Int("sampled", profile.TotalSampled),
		zap.Int("issues", ca.Summary.TotalIssues),
		zap.Float64("quality_score", ca.Summary.OverallQualityScore))
	return ca, nil
}

// failed builds the assessment of a container that produced no profile.
func failed(meta models.ContainerMetadata, code string, err error) models.ContainerAssessment {
	return models.ContainerAssessment{
		Container: meta.Name,
		Status:    models.StatusFailed,
		Metadata:  meta,
		Error:     err.Error(),
		Warnings: []models.AnalysisWarning{{
			Container: meta.Name,
			Code:      code,
			Message:   err.Error(),
		}},
	}
}

// isCancellation reports whether err comes from ctx being done.
func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// overall averages the quality scores of containers that have one. The run
// is ready only when every container completed without blocking issues.
func overall(containers []models.ContainerAssessment) (float64, bool) {
	ready := len(containers) > 0
	total, n := 0.0, 0
	for _, c := range containers {
		if c.Status != models.StatusCompleted {
			ready = false
		}
		if c.Summary == nil {
			continue
		}
		total += c.Summary.OverallQualityScore
		n++
		ready = ready && c.Summary.ReadyForMigration
	}
	if n == 0 {
		return 0, false
	}
	return math.Round(total/float64(n)*100) / 100, ready
}
