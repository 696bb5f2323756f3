package models

import (
	"fmt"
	"time"
)

// ============================================================================
// Severity
// ============================================================================

// Severity is an ordered issue level: Info < Warning < Critical.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", string(b))
	}
	return nil
}

// AllSeverities lists severities from lowest to highest.
var AllSeverities = []Severity{SeverityInfo, SeverityWarning, SeverityCritical}

// ============================================================================
// Category
// ============================================================================

// IssueCategory is the closed set of quality issue categories.
type IssueCategory string

const (
	CategoryNull      IssueCategory = "null"
	CategoryDuplicate IssueCategory = "duplicate"
	CategoryType      IssueCategory = "type"
	CategoryOutlier   IssueCategory = "outlier"
	CategoryLength    IssueCategory = "length"
	CategoryEncoding  IssueCategory = "encoding"
	CategoryDate      IssueCategory = "date"
	// CategoryAnalysis records a check that failed to run for a field.
	CategoryAnalysis IssueCategory = "analysis"
)

// AllCategories lists every category in report order.
var AllCategories = []IssueCategory{
	CategoryNull,
	CategoryDuplicate,
	CategoryType,
	CategoryOutlier,
	CategoryLength,
	CategoryEncoding,
	CategoryDate,
	CategoryAnalysis,
}

// ============================================================================
// Checker Results
// ============================================================================

// NullAnalysisResult counts explicit nulls and absent keys for one field.
type NullAnalysisResult struct {
	Field                 string   `json:"field"`
	TotalDocuments        int      `json:"total_documents"`
	NullCount             int      `json:"null_count"`
	MissingCount          int      `json:"missing_count"`
	NonNullCount          int      `json:"non_null_count"`
	NullPercentage        float64  `json:"null_percentage"`
	MissingPercentage     float64  `json:"missing_percentage"`
	Severity              Severity `json:"severity"`
	IsRecommendedRequired bool     `json:"is_recommended_required"`
	SampleDocumentIDs     []string `json:"sample_document_ids,omitempty"`
}

// KeyKind says where a duplicate-detection key came from.
type KeyKind string

const (
	KeyKindID        KeyKind = "id"
	KeyKindPartition KeyKind = "partition"
	KeyKindBusiness  KeyKind = "business"
	KeyKindCandidate KeyKind = "candidate"
)

// DuplicateGroup is one set of documents sharing a key value.
type DuplicateGroup struct {
	KeyValue    string   `json:"key_value"`
	Occurrences int      `json:"occurrences"`
	DocumentIDs []string `json:"document_ids"`
}

// DuplicateAnalysisResult reports duplication for one key definition.
// DuplicateRecordCount counts redundant copies (group size minus one).
type DuplicateAnalysisResult struct {
	KeyName              string           `json:"key_name"`
	KeyFields            []string         `json:"key_fields"`
	KeyKind              KeyKind          `json:"key_kind"`
	DocumentsWithKey     int              `json:"documents_with_key"`
	DuplicateGroupCount  int              `json:"duplicate_group_count"`
	DuplicateRecordCount int              `json:"duplicate_record_count"`
	AffectedRecordCount  int              `json:"affected_record_count"`
	DuplicatePercentage  float64          `json:"duplicate_percentage"`
	Severity             Severity         `json:"severity"`
	TopGroups            []DuplicateGroup `json:"top_groups,omitempty"`
}

// TypeMismatchSample is one observation that disagrees with the dominant type.
type TypeMismatchSample struct {
	DocumentID   string  `json:"document_id"`
	ExpectedType TypeTag `json:"expected_type"`
	ActualType   TypeTag `json:"actual_type"`
	Value        string  `json:"value"`
}

// TypeConsistencyResult is the type distribution of one field.
type TypeConsistencyResult struct {
	Field            string               `json:"field"`
	TypeDistribution map[TypeTag]int      `json:"type_distribution"`
	DominantType     TypeTag              `json:"dominant_type"`
	DominantShare    float64              `json:"dominant_share"`
	IsConsistent     bool                 `json:"is_consistent"`
	MismatchCount    int                  `json:"mismatch_count"`
	MismatchRatio    float64              `json:"mismatch_ratio"`
	Samples          []TypeMismatchSample `json:"samples,omitempty"`
	RecommendedType  string               `json:"recommended_type"`
	Severity         Severity             `json:"severity"`
}

// OutlierDirection says which side of the distribution a value sits on.
type OutlierDirection string

const (
	DirectionLow  OutlierDirection = "low"
	DirectionHigh OutlierDirection = "high"
)

// Outlier rule names.
const (
	RuleZScore = "zscore"
	RuleTukey  = "tukey"
)

// OutlierValue is one flagged numeric observation.
type OutlierValue struct {
	DocumentID string           `json:"document_id"`
	Value      float64          `json:"value"`
	ZScore     float64          `json:"z_score"`
	Direction  OutlierDirection `json:"direction"`
	Rules      []string         `json:"rules"`
}

// OutlierResult holds distribution statistics and outliers of a numeric field.
type OutlierResult struct {
	Field             string         `json:"field"`
	Count             int            `json:"count"`
	Mean              float64        `json:"mean"`
	StdDev            float64        `json:"std_dev"`
	Min               float64        `json:"min"`
	Max               float64        `json:"max"`
	Median            float64        `json:"median"`
	Q1                float64        `json:"q1"`
	Q3                float64        `json:"q3"`
	IQR               float64        `json:"iqr"`
	LowerFence        float64        `json:"lower_fence"`
	UpperFence        float64        `json:"upper_fence"`
	OutlierCount      int            `json:"outlier_count"`
	ZScoreOutliers    int            `json:"z_score_outliers"`
	TukeyOutliers     int            `json:"tukey_outliers"`
	OutlierPercentage float64        `json:"outlier_percentage"`
	Samples           []OutlierValue `json:"samples,omitempty"`
	SkippedRules      []string       `json:"skipped_rules,omitempty"`
	Severity          Severity       `json:"severity"`
}

// LengthBucket is one histogram bin of string lengths, inclusive bounds.
// Max of -1 means unbounded.
type LengthBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// StringLengthResult describes the length distribution of a string field.
type StringLengthResult struct {
	Field           string         `json:"field"`
	Count           int            `json:"count"`
	EmptyCount      int            `json:"empty_count"`
	OverLimitCount  int            `json:"over_limit_count"`
	MinLength       int            `json:"min_length"`
	MaxLength       int            `json:"max_length"`
	AvgLength       float64        `json:"avg_length"`
	MedianLength    float64        `json:"median_length"`
	P95Length       int            `json:"p95_length"`
	P99Length       int            `json:"p99_length"`
	Histogram       []LengthBucket `json:"histogram"`
	RecommendedType string         `json:"recommended_type"`
	Severity        Severity       `json:"severity"`
	SampleDocIDs    []string       `json:"sample_document_ids,omitempty"`
}

// EncodingIssueType names a class of character problems.
type EncodingIssueType string

const (
	EncodingNonASCII           EncodingIssueType = "non_ascii"
	EncodingSupplementaryPlane EncodingIssueType = "supplementary_plane"
	EncodingControlCharacter   EncodingIssueType = "control_character"
	EncodingInvalidUTF8        EncodingIssueType = "invalid_utf8"
	EncodingNonNormalized      EncodingIssueType = "non_normalized"
	EncodingInjectionPattern   EncodingIssueType = "injection_pattern"
)

// EncodingSample shows an offending value with the code points that tripped it.
type EncodingSample struct {
	DocumentID string `json:"document_id"`
	Excerpt    string `json:"excerpt"`
	HexCodes   string `json:"hex_codes"`
}

// EncodingResult is one (field, issue type) finding.
type EncodingResult struct {
	Field              string            `json:"field"`
	IssueType          EncodingIssueType `json:"issue_type"`
	AffectedDocuments  int               `json:"affected_documents"`
	AffectedPercentage float64           `json:"affected_percentage"`
	Samples            []EncodingSample  `json:"samples,omitempty"`
	Severity           Severity          `json:"severity"`
	Recommendation     string            `json:"recommendation"`
}

// DateSample is one rejected date observation.
type DateSample struct {
	DocumentID string `json:"document_id"`
	Value      string `json:"value"`
	Reason     string `json:"reason"`
}

// DateValidationResult summarizes timestamp validity for a date field.
type DateValidationResult struct {
	Field             string       `json:"field"`
	TotalValues       int          `json:"total_values"`
	ValidCount        int          `json:"valid_count"`
	InvalidDateCount  int          `json:"invalid_date_count"`
	TooOldCount       int          `json:"too_old_count"`
	FutureCount       int          `json:"future_count"`
	InvalidPercentage float64      `json:"invalid_percentage"`
	Earliest          *time.Time   `json:"earliest,omitempty"`
	Latest            *time.Time   `json:"latest,omitempty"`
	Samples           []DateSample `json:"samples,omitempty"`
	Severity          Severity     `json:"severity"`
}

// AnalysisFailure records a check that could not complete for a field.
type AnalysisFailure struct {
	Checker string `json:"checker"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// QualityReport collects every checker output for one container.
type QualityReport struct {
	Container      string                    `json:"container"`
	TotalDocuments int                       `json:"total_documents"`
	Nulls          []NullAnalysisResult      `json:"nulls"`
	Duplicates     []DuplicateAnalysisResult `json:"duplicates"`
	Types          []TypeConsistencyResult   `json:"types"`
	Outliers       []OutlierResult           `json:"outliers"`
	Lengths        []StringLengthResult      `json:"lengths"`
	Encodings      []EncodingResult          `json:"encodings"`
	Dates          []DateValidationResult    `json:"dates"`
	Failures       []AnalysisFailure         `json:"failures,omitempty"`
}

// NullResult returns the null analysis for field, if any.
func (r *QualityReport) NullResult(field string) (NullAnalysisResult, bool) {
	for _, n := range r.Nulls {
		if n.Field == field {
			return n, true
		}
	}
	return NullAnalysisResult{}, false
}

// TypeResult returns the type consistency result for field, if any.
func (r *QualityReport) TypeResult(field string) (TypeConsistencyResult, bool) {
	for _, t := range r.Types {
		if t.Field == field {
			return t, true
		}
	}
	return TypeConsistencyResult{}, false
}

// LengthResult returns the string length result for field, if any.
func (r *QualityReport) LengthResult(field string) (StringLengthResult, bool) {
	for _, l := range r.Lengths {
		if l.Field == field {
			return l, true
		}
	}
	return StringLengthResult{}, false
}

// DateResult returns the date validation result for field, if any.
func (r *QualityReport) DateResult(field string) (DateValidationResult, bool) {
	for _, d := range r.Dates {
		if d.Field == field {
			return d, true
		}
	}
	return DateValidationResult{}, false
}

// ============================================================================
// Issues and Summary
// ============================================================================

// DataQualityIssue is one normalized finding. Issues are immutable once built.
type DataQualityIssue struct {
	ID               string             `json:"id"`
	Container        string             `json:"container"`
	Field            string             `json:"field,omitempty"`
	Severity         Severity           `json:"severity"`
	Category         IssueCategory      `json:"category"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	AffectedFraction float64            `json:"affected_fraction"`
	Metrics          map[string]float64 `json:"metrics,omitempty"`
	SampleRecordIDs  []string           `json:"sample_record_ids,omitempty"`
	Recommendations  []string           `json:"recommendations,omitempty"`
}

// QualityRating is the score band of a quality summary.
type QualityRating string

const (
	RatingExcellent QualityRating = "excellent"
	RatingGood      QualityRating = "good"
	RatingFair      QualityRating = "fair"
	RatingPoor      QualityRating = "poor"
)

// QualitySummary is the aggregated quality verdict for a container.
type QualitySummary struct {
	Container             string                `json:"container"`
	TotalIssues           int                   `json:"total_issues"`
	CountsBySeverity      map[Severity]int      `json:"counts_by_severity"`
	CountsByCategory      map[IssueCategory]int `json:"counts_by_category"`
	OverallQualityScore   float64               `json:"overall_quality_score"`
	Rating                QualityRating         `json:"rating"`
	ReadyForMigration     bool                  `json:"ready_for_migration"`
	BlockingIssues        []string              `json:"blocking_issues,omitempty"`
	EstimatedCleanupHours float64               `json:"estimated_cleanup_hours"`
	Issues                []DataQualityIssue    `json:"issues"`
}

// CriticalCount returns the number of critical issues.
func (s *QualitySummary) CriticalCount() int {
	return s.CountsBySeverity[SeverityCritical]
}
