package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// Issue ids are name-based so the same finding gets the same id on every run.
var issueNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:cosmos-migration-assessment:issue"))

// Aggregator turns a quality report into a scored summary.
type Aggregator interface {
	Summarize(report *models.QualityReport) *models.QualitySummary
}

type aggregator struct {
	opts   config.AnalysisOptions
	logger *zap.Logger
}

// NewAggregator creates an issue aggregator.
func NewAggregator(opts config.AnalysisOptions, logger *zap.Logger) Aggregator {
	return &aggregator{
		opts:   opts,
		logger: logger.Named("quality-aggregator"),
	}
}

var _ Aggregator = (*aggregator)(nil)

// Summarize flattens every finding into issues, scores them, and decides
// readiness. Any critical issue blocks migration.
func (s *aggregator) Summarize(report *models.QualityReport) *models.QualitySummary {
	issues := CollectIssues(report, s.opts)

	summary := &models.QualitySummary{
		Container:        report.Container,
		TotalIssues:      len(issues),
		CountsBySeverity: make(map[models.Severity]int, len(models.AllSeverities)),
		CountsByCategory: make(map[models.IssueCategory]int),
		Issues:           issues,
	}
	for _, sev := range models.AllSeverities {
		summary.CountsBySeverity[sev] = 0
	}

	sc := s.opts.Scoring
	deduction := 0.0
	hours := 0.0
	for _, issue := range issues {
		summary.CountsBySeverity[issue.Severity]++
		summary.CountsByCategory[issue.Category]++

		weight, perIssueHours := sc.InfoWeight, sc.HoursPerInfo
		switch issue.Severity {
		case models.SeverityCritical:
			weight, perIssueHours = sc.CriticalWeight, sc.HoursPerCritical
			summary.BlockingIssues = append(summary.BlockingIssues, issue.Title)
		case models.SeverityWarning:
			weight, perIssueHours = sc.WarningWeight, sc.HoursPerWarning
		}
		deduction += weight * (0.5 + 0.5*clamp01(issue.AffectedFraction))
		hours += perIssueHours
	}

	summary.OverallQualityScore = round2(math.Max(0, math.Min(100, 100-deduction)))
	summary.Rating = RatingFor(summary.OverallQualityScore, sc)
	summary.ReadyForMigration = summary.CriticalCount() == 0
	summary.EstimatedCleanupHours = round2(hours)

	s.logger.Debug("Quality summary",
		zap.String("container", report.Container),
		zap.Int("issues", summary.TotalIssues),
		zap.Int("critical", summary.CriticalCount()),
		zap.Float64("score", summary.OverallQualityScore))

	return summary
}

// RatingFor maps a score onto the configured rating bands.
func RatingFor(score float64, sc config.ScoringOptions) models.QualityRating {
	switch {
	case score >= sc.ExcellentMin:
		return models.RatingExcellent
	case score >= sc.GoodMin:
		return models.RatingGood
	case score >= sc.FairMin:
		return models.RatingFair
	default:
		return models.RatingPoor
	}
}

// CollectIssues normalizes checker output into issues ordered by severity
// (highest first), category, field, then title.
func CollectIssues(report *models.QualityReport, opts config.AnalysisOptions) []models.DataQualityIssue {
	b := &issueBuilder{container: report.Container}

	for _, r := range report.Nulls {
		if r.NullCount == 0 {
			continue
		}
		b.add(models.DataQualityIssue{
			Field:            r.Field,
			Severity:         r.Severity,
			Category:         models.CategoryNull,
			Title:            fmt.Sprintf("Null values in %s", r.Field),
			Description:      fmt.Sprintf("%d of %d documents hold an explicit null in %s (%.1f%%); %d omit the field", r.NullCount, r.TotalDocuments, r.Field, r.NullPercentage*100, r.MissingCount),
			AffectedFraction: r.NullPercentage,
			Metrics: map[string]float64{
				"null_count":         float64(r.NullCount),
				"missing_count":      float64(r.MissingCount),
				"null_percentage":    r.NullPercentage,
				"missing_percentage": r.MissingPercentage,
			},
			SampleRecordIDs: r.SampleDocumentIDs,
			Recommendations: nullRecommendations(r),
		}, "")
	}

	for _, r := range report.Duplicates {
		if r.DuplicateRecordCount == 0 {
			continue
		}
		var ids []string
		for _, g := range r.TopGroups {
			for _, id := range g.DocumentIDs {
				ids = limitIDs(ids, id, opts.MaxSampleRecords)
			}
		}
		b.add(models.DataQualityIssue{
			Field:            strings.Join(r.KeyFields, ","),
			Severity:         r.Severity,
			Category:         models.CategoryDuplicate,
			Title:            fmt.Sprintf("Duplicate values for key %s", r.KeyName),
			Description:      fmt.Sprintf("%d duplicate groups hold %d redundant records (%.2f%% of %d documents with the key)", r.DuplicateGroupCount, r.DuplicateRecordCount, r.DuplicatePercentage*100, r.DocumentsWithKey),
			AffectedFraction: r.DuplicatePercentage,
			Metrics: map[string]float64{
				"duplicate_groups":     float64(r.DuplicateGroupCount),
				"duplicate_records":    float64(r.DuplicateRecordCount),
				"affected_records":     float64(r.AffectedRecordCount),
				"duplicate_percentage": r.DuplicatePercentage,
			},
			SampleRecordIDs: ids,
			Recommendations: []string{
				"Deduplicate or merge records before loading",
				fmt.Sprintf("Confirm whether %s is meant to be unique", r.KeyName),
			},
		}, r.KeyName)
	}

	for _, r := range report.Types {
		if r.MismatchCount == 0 {
			continue
		}
		var ids []string
		for _, sample := range r.Samples {
			ids = append(ids, sample.DocumentID)
		}
		b.add(models.DataQualityIssue{
			Field:            r.Field,
			Severity:         r.Severity,
			Category:         models.CategoryType,
			Title:            fmt.Sprintf("Mixed types in %s", r.Field),
			Description:      fmt.Sprintf("%s is %s in %.1f%% of values; %d values have another type", r.Field, r.DominantType, r.DominantShare*100, r.MismatchCount),
			AffectedFraction: r.MismatchRatio,
			Metrics: map[string]float64{
				"dominant_share": r.DominantShare,
				"mismatch_count": float64(r.MismatchCount),
				"mismatch_ratio": r.MismatchRatio,
			},
			SampleRecordIDs: ids,
			Recommendations: []string{
				fmt.Sprintf("Convert values to %s or map the column as %s", r.DominantType, r.RecommendedType),
			},
		}, "")
	}

	for _, r := range report.Outliers {
		if r.OutlierCount == 0 {
			continue
		}
		var ids []string
		for _, sample := range r.Samples {
			ids = append(ids, sample.DocumentID)
		}
		b.add(models.DataQualityIssue{
			Field:            r.Field,
			Severity:         r.Severity,
			Category:         models.CategoryOutlier,
			Title:            fmt.Sprintf("Outliers in %s", r.Field),
			Description:      fmt.Sprintf("%d of %d values fall outside the expected range (median %.4g, fences %.4g to %.4g)", r.OutlierCount, r.Count, r.Median, r.LowerFence, r.UpperFence),
			AffectedFraction: r.OutlierPercentage,
			Metrics: map[string]float64{
				"outlier_count":      float64(r.OutlierCount),
				"zscore_outliers":    float64(r.ZScoreOutliers),
				"tukey_outliers":     float64(r.TukeyOutliers),
				"outlier_percentage": r.OutlierPercentage,
				"mean":               r.Mean,
				"std_dev":            r.StdDev,
			},
			SampleRecordIDs: ids,
			Recommendations: []string{"Verify outlying values with the data owner before loading"},
		}, "")
	}

	for _, r := range report.Lengths {
		if r.Severity == models.SeverityInfo {
			continue
		}
		b.add(models.DataQualityIssue{
			Field:            r.Field,
			Severity:         r.Severity,
			Category:         models.CategoryLength,
			Title:            fmt.Sprintf("Long strings in %s", r.Field),
			Description:      fmt.Sprintf("%d values exceed %d characters (max %d, p99 %d)", r.OverLimitCount, opts.MaxStringLengthForVarchar, r.MaxLength, r.P99Length),
			AffectedFraction: ratio(r.OverLimitCount, r.Count),
			Metrics: map[string]float64{
				"max_length": float64(r.MaxLength),
				"p95_length": float64(r.P95Length),
				"p99_length": float64(r.P99Length),
				"over_limit": float64(r.OverLimitCount),
			},
			SampleRecordIDs: r.SampleDocIDs,
			Recommendations: []string{fmt.Sprintf("Map %s as %s or truncate values", r.Field, r.RecommendedType)},
		}, "")
	}

	for _, r := range report.Encodings {
		var ids []string
		for _, sample := range r.Samples {
			ids = append(ids, sample.DocumentID)
		}
		b.add(models.DataQualityIssue{
			Field:            r.Field,
			Severity:         r.Severity,
			Category:         models.CategoryEncoding,
			Title:            fmt.Sprintf("Encoding issue (%s) in %s", r.IssueType, r.Field),
			Description:      fmt.Sprintf("%d documents (%.1f%%) contain %s characters", r.AffectedDocuments, r.AffectedPercentage*100, strings.ReplaceAll(string(r.IssueType), "_", " ")),
			AffectedFraction: r.AffectedPercentage,
			Metrics: map[string]float64{
				"affected_documents":  float64(r.AffectedDocuments),
				"affected_percentage": r.AffectedPercentage,
			},
			SampleRecordIDs: ids,
			Recommendations: []string{r.Recommendation},
		}, string(r.IssueType))
	}

	for _, r := range report.Dates {
		bad := r.InvalidDateCount + r.TooOldCount + r.FutureCount
		if bad == 0 {
			continue
		}
		var ids []string
		for _, sample := range r.Samples {
			ids = append(ids, sample.DocumentID)
		}
		b.add(models.DataQualityIssue{
			Field:            r.Field,
			Severity:         r.Severity,
			Category:         models.CategoryDate,
			Title:            fmt.Sprintf("Invalid dates in %s", r.Field),
			Description:      fmt.Sprintf("%d of %d values are unparseable (%d), too old (%d) or in the future (%d)", bad, r.TotalValues, r.InvalidDateCount, r.TooOldCount, r.FutureCount),
			AffectedFraction: r.InvalidPercentage,
			Metrics: map[string]float64{
				"invalid_count":      float64(r.InvalidDateCount),
				"too_old_count":      float64(r.TooOldCount),
				"future_count":       float64(r.FutureCount),
				"invalid_percentage": r.InvalidPercentage,
			},
			SampleRecordIDs: ids,
			Recommendations: []string{"Correct or null out invalid dates before loading into DATETIME2"},
		}, "")
	}

	for _, f := range report.Failures {
		target := f.Field
		if target == "" {
			target = "all fields"
		}
		b.add(models.DataQualityIssue{
			Field:            f.Field,
			Severity:         models.SeverityWarning,
			Category:         models.CategoryAnalysis,
			Title:            fmt.Sprintf("%s check failed for %s", f.Checker, target),
			Description:      f.Message,
			AffectedFraction: 1,
			Recommendations:  []string{"Inspect the field manually; its results are missing from this assessment"},
		}, f.Checker)
	}

	sortIssues(b.issues)
	return b.issues
}

type issueBuilder struct {
	container string
	issues    []models.DataQualityIssue
}

func (b *issueBuilder) add(issue models.DataQualityIssue, discriminator string) {
	issue.Container = b.container
	name := strings.Join([]string{b.container, string(issue.Category), issue.Field, discriminator}, "|")
	issue.ID = uuid.NewSHA1(issueNamespace, []byte(name)).String()
	b.issues = append(b.issues, issue)
}

func sortIssues(issues []models.DataQualityIssue) {
	order := make(map[models.IssueCategory]int, len(models.AllCategories))
	for i, c := range models.AllCategories {
		order[c] = i
	}
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Category != b.Category {
			return order[a.Category] < order[b.Category]
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		return a.Title < b.Title
	})
}

func nullRecommendations(r models.NullAnalysisResult) []string {
	if r.IsRecommendedRequired {
		return []string{fmt.Sprintf("Backfill nulls in %s so the column can be NOT NULL", r.Field)}
	}
	return []string{fmt.Sprintf("Map %s as a nullable column or supply a default", r.Field)}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
