package complexity

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// Factor names. Every risk string names the factor and metric it came from.
const (
	FactorRowCount       = "row_count"
	FactorTableCount     = "table_count"
	FactorNestingDepth   = "nesting_depth"
	FactorSharedSchemas  = "shared_schemas"
	FactorCriticalIssues = "critical_issues"
	FactorArrayFields    = "array_fields"
	FactorThrottling     = "throttling"
	FactorDegraded       = "degraded_containers"
)

// Scorer rates a finished assessment.
type Scorer interface {
	Score(a *models.Assessment) models.MigrationComplexity
}

type scorer struct {
	opts   config.ComplexityOptions
	logger *zap.Logger
}

// NewScorer creates a complexity scorer.
func NewScorer(opts config.ComplexityOptions, logger *zap.Logger) Scorer {
	return &scorer{
		opts:   opts,
		logger: logger.Named("complexity"),
	}
}

var _ Scorer = (*scorer)(nil)

// signals are the raw metrics every factor is computed from.
type signals struct {
	tables          int
	shared          int
	maxDepth        int
	documents       int64
	sampledOnly     int
	criticalIssues  int
	arrayFields     int
	throttledRate   float64
	metricsPresent  bool
	degraded        int
	containersTotal int
}

// Score triggers factors against their thresholds, sums their points into a
// bucket and estimates days from the bucket and the table count.
func (s *scorer) Score(a *models.Assessment) models.MigrationComplexity {
	sig := collect(a)

	var factors []models.ComplexityFactor
	add := func(f models.ComplexityFactor, ok bool) {
		if ok {
			factors = append(factors, f)
		}
	}
	add(s.rowCountFactor(sig))
	add(s.tableFactor(sig))
	add(models.ComplexityFactor{
		Name:        FactorNestingDepth,
		Metric:      "max_nesting_depth",
		Value:       float64(sig.maxDepth),
		Threshold:   float64(s.opts.DepthThreshold),
		Severity:    models.SeverityWarning,
		Points:      1,
		Description: fmt.Sprintf("documents nest %d levels deep; each level adds a child table join", sig.maxDepth),
	}, sig.maxDepth > s.opts.DepthThreshold)
	add(models.ComplexityFactor{
		Name:        FactorSharedSchemas,
		Metric:      "shared_schema_count",
		Value:       float64(sig.shared),
		Severity:    models.SeverityInfo,
		Points:      1,
		Description: fmt.Sprintf("%d child structures are shared and must be migrated consistently", sig.shared),
	}, sig.shared > 0)
	add(models.ComplexityFactor{
		Name:        FactorCriticalIssues,
		Metric:      "critical_issues",
		Value:       float64(sig.criticalIssues),
		Severity:    models.SeverityCritical,
		Points:      2,
		Description: fmt.Sprintf("%d critical data quality issues block a clean load", sig.criticalIssues),
	}, sig.criticalIssues > 0)
	add(models.ComplexityFactor{
		Name:        FactorArrayFields,
		Metric:      "array_fields",
		Value:       float64(sig.arrayFields),
		Threshold:   float64(s.opts.ArrayFieldThreshold),
		Severity:    models.SeverityWarning,
		Points:      1,
		Description: fmt.Sprintf("%d array fields each become a child table to populate in order", sig.arrayFields),
	}, sig.arrayFields > s.opts.ArrayFieldThreshold)
	add(models.ComplexityFactor{
		Name:        FactorThrottling,
		Metric:      "throttled_rate",
		Value:       sig.throttledRate,
		Threshold:   s.opts.ThrottledRateWarning,
		Severity:    models.SeverityWarning,
		Points:      1,
		Description: fmt.Sprintf("source throttles %.2f%% of requests; extraction must be rate limited", sig.throttledRate*100),
	}, sig.metricsPresent && sig.throttledRate >= s.opts.ThrottledRateWarning)
	add(models.ComplexityFactor{
		Name:        FactorDegraded,
		Metric:      "degraded_containers",
		Value:       float64(sig.degraded),
		Severity:    models.SeverityWarning,
		Points:      1,
		Description: fmt.Sprintf("%d of %d containers were partially analyzed or failed", sig.degraded, sig.containersTotal),
	}, sig.degraded > 0)

	points := 0
	for _, f := range factors {
		points += f.Points
	}
	level := s.levelFor(points)

	result := models.MigrationComplexity{
		OverallComplexity:      level,
		Score:                  points,
		Factors:                factors,
		EstimatedMigrationDays: s.estimateDays(level, sig.tables),
		Risks:                  risks(factors),
		Assumptions:            assumptions(sig),
		TotalTables:            sig.tables,
		SharedSchemaCount:      sig.shared,
		MaxNestingDepth:        sig.maxDepth,
		TotalDocuments:         sig.documents,
		CriticalIssues:         sig.criticalIssues,
		ArrayFields:            sig.arrayFields,
	}
	if result.Factors == nil {
		result.Factors = []models.ComplexityFactor{}
	}

	s.logger.Info("Scored migration complexity",
		zap.String("complexity", string(level)),
		zap.Int("points", points),
		zap.Int("factors", len(factors)),
		zap.Int("tables", sig.tables),
		zap.Float64("estimated_days", result.EstimatedMigrationDays))
	return result
}

func (s *scorer) rowCountFactor(sig signals) (models.ComplexityFactor, bool) {
	f := models.ComplexityFactor{
		Name:   FactorRowCount,
		Metric: "total_documents",
		Value:  float64(sig.documents),
	}
	switch {
	case sig.documents >= s.opts.RowCountCritical:
		f.Threshold, f.Severity, f.Points = float64(s.opts.RowCountCritical), models.SeverityCritical, 3
		f.Description = fmt.Sprintf("%d documents; bulk load needs partitioned, resumable batches", sig.documents)
	case sig.documents >= s.opts.RowCountHigh:
		f.Threshold, f.Severity, f.Points = float64(s.opts.RowCountHigh), models.SeverityWarning, 2
		f.Description = fmt.Sprintf("%d documents; high priority to plan load windows", sig.documents)
	case sig.documents >= s.opts.RowCountWarning:
		f.Threshold, f.Severity, f.Points = float64(s.opts.RowCountWarning), models.SeverityWarning, 1
		f.Description = fmt.Sprintf("%d documents; load time becomes noticeable", sig.documents)
	default:
		return f, false
	}
	return f, true
}

func (s *scorer) tableFactor(sig signals) (models.ComplexityFactor, bool) {
	if sig.tables <= s.opts.TableCountThreshold {
		return models.ComplexityFactor{}, false
	}
	points := 1
	if sig.tables > 2*s.opts.TableCountThreshold {
		points = 2
	}
	return models.ComplexityFactor{
		Name:        FactorTableCount,
		Metric:      "total_tables",
		Value:       float64(sig.tables),
		Threshold:   float64(s.opts.TableCountThreshold),
		Severity:    models.SeverityWarning,
		Points:      points,
		Description: fmt.Sprintf("%d target tables to create, load and verify", sig.tables),
	}, true
}

func (s *scorer) levelFor(points int) models.ComplexityLevel {
	switch {
	case points >= s.opts.HighPoints:
		return models.ComplexityHigh
	case points >= s.opts.MediumPoints:
		return models.ComplexityMedium
	}
	return models.ComplexityLow
}

// estimateDays is non-decreasing in both level and table count.
func (s *scorer) estimateDays(level models.ComplexityLevel, tables int) float64 {
	base, perTable := s.opts.BaseDaysLow, s.opts.DaysPerTableLow
	switch level {
	case models.ComplexityMedium:
		base, perTable = s.opts.BaseDaysMedium, s.opts.DaysPerTableMedium
	case models.ComplexityHigh:
		base, perTable = s.opts.BaseDaysHigh, s.opts.DaysPerTableHigh
	}
	return base + float64(tables)*perTable
}

func collect(a *models.Assessment) signals {
	sig := signals{
		shared:          len(a.SharedSchemas),
		containersTotal: len(a.Containers),
	}
	for i := range a.Containers {
		c := &a.Containers[i]
		if c.Status != models.StatusCompleted {
			sig.degraded++
		}
		if c.Mapping != nil {
			sig.tables += c.Mapping.TableCount()
		}
		if c.Summary != nil {
			sig.criticalIssues += c.Summary.CriticalCount()
		}
		switch {
		case c.Metadata.DocumentCount > 0:
			sig.documents += c.Metadata.DocumentCount
		case c.Profile != nil:
			sig.documents += int64(c.Profile.TotalSampled)
			sig.sampledOnly++
		}
		if c.Profile != nil {
			sig.maxDepth = max(sig.maxDepth, c.Profile.Union.MaxDepth())
			sig.arrayFields += countArrays(c.Profile.Union.Fields)
		}
		if c.Metrics != nil {
			sig.metricsPresent = true
			sig.throttledRate = max(sig.throttledRate, c.Metrics.ThrottledRate)
		}
	}
	return sig
}

func countArrays(fields map[string]*models.FieldInfo) int {
	n := 0
	for _, f := range fields {
		if f.IsArray() {
			n++
			if f.Element != nil {
				n += countArrays(f.Element.Children)
			}
		}
		n += countArrays(f.Children)
	}
	return n
}

func risks(factors []models.ComplexityFactor) []string {
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		out = append(out, fmt.Sprintf("%s: %s (%s=%g)", f.Name, f.Description, f.Metric, f.Value))
	}
	return out
}

func assumptions(sig signals) []string {
	out := []string{"sampled documents are representative of each container"}
	if sig.sampledOnly > 0 {
		out = append(out, fmt.Sprintf("%d containers had no declared document count; sample size was used instead", sig.sampledOnly))
	}
	if !sig.metricsPresent {
		out = append(out, "no performance metrics were supplied; throughput risk was not assessed")
	}
	return out
}
