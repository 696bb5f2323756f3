package config

import (
	"math"
	"time"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
)

const dateLayout = "2006-01-02"

// AnalysisOptions holds every threshold used by the analysis engine.
// Defaults live in the env-default tags and in DefaultAnalysisOptions, which
// must agree.
type AnalysisOptions struct {
	// Sampling and inference
	SampleSize              int     `yaml:"sample_size" env:"ANALYSIS_SAMPLE_SIZE" env-default:"1000"`
	MaxConcurrentContainers int     `yaml:"max_concurrent_containers" env:"ANALYSIS_MAX_CONCURRENT_CONTAINERS" env-default:"4"`
	MaxArrayElements        int     `yaml:"max_array_elements" env:"ANALYSIS_MAX_ARRAY_ELEMENTS" env-default:"100"`
	MaxNestingDepth         int     `yaml:"max_nesting_depth" env:"ANALYSIS_MAX_NESTING_DEPTH" env-default:"8"`
	SkipRateThreshold       float64 `yaml:"skip_rate_threshold" env:"ANALYSIS_SKIP_RATE_THRESHOLD" env-default:"0.10"`
	MaxSampleRecords        int     `yaml:"max_sample_records" env:"ANALYSIS_MAX_SAMPLE_RECORDS" env-default:"5"`

	// Null analysis
	NullThresholdWarning  float64 `yaml:"null_threshold_warning" env:"ANALYSIS_NULL_THRESHOLD_WARNING" env-default:"0.05"`
	NullThresholdCritical float64 `yaml:"null_threshold_critical" env:"ANALYSIS_NULL_THRESHOLD_CRITICAL" env-default:"0.15"`

	// Duplicate analysis
	DuplicateThresholdCritical       float64 `yaml:"duplicate_threshold_critical" env:"ANALYSIS_DUPLICATE_THRESHOLD_CRITICAL" env-default:"0.01"`
	TopDuplicateGroups               int     `yaml:"top_duplicate_groups" env:"ANALYSIS_TOP_DUPLICATE_GROUPS" env-default:"10"`
	CandidateKeySelectivity          float64 `yaml:"candidate_key_selectivity" env:"ANALYSIS_CANDIDATE_KEY_SELECTIVITY" env-default:"0.95"`
	UniqueConstraintMaxDuplicateRate float64 `yaml:"unique_constraint_max_duplicate_rate" env:"ANALYSIS_UNIQUE_CONSTRAINT_MAX_DUPLICATE_RATE" env-default:"0"`

	// Type consistency
	TypeDominanceThreshold    float64 `yaml:"type_dominance_threshold" env:"ANALYSIS_TYPE_DOMINANCE_THRESHOLD" env-default:"0.95"`
	TypeMismatchCriticalRatio float64 `yaml:"type_mismatch_critical_ratio" env:"ANALYSIS_TYPE_MISMATCH_CRITICAL_RATIO" env-default:"0.20"`

	// Outliers
	OutlierZScoreThreshold   float64 `yaml:"outlier_zscore_threshold" env:"ANALYSIS_OUTLIER_ZSCORE_THRESHOLD" env-default:"3"`
	OutlierIQRMultiplier     float64 `yaml:"outlier_iqr_multiplier" env:"ANALYSIS_OUTLIER_IQR_MULTIPLIER" env-default:"1.5"`
	MinOutlierSampleSize     int     `yaml:"min_outlier_sample_size" env:"ANALYSIS_MIN_OUTLIER_SAMPLE_SIZE" env-default:"4"`
	OutlierWarningPercentage float64 `yaml:"outlier_warning_percentage" env:"ANALYSIS_OUTLIER_WARNING_PERCENTAGE" env-default:"0.05"`

	// Strings and encoding
	MaxStringLengthForVarchar  int     `yaml:"max_string_length_for_varchar" env:"ANALYSIS_MAX_STRING_LENGTH_FOR_VARCHAR" env-default:"4000"`
	EncodingCriticalPercentage float64 `yaml:"encoding_critical_percentage" env:"ANALYSIS_ENCODING_CRITICAL_PERCENTAGE" env-default:"0.05"`

	// Dates
	MinReasonableDate             string  `yaml:"min_reasonable_date" env:"ANALYSIS_MIN_REASONABLE_DATE" env-default:"1900-01-01"`
	MaxReasonableYears            int     `yaml:"max_reasonable_years" env:"ANALYSIS_MAX_REASONABLE_YEARS" env-default:"10"`
	DateDetectionRatio            float64 `yaml:"date_detection_ratio" env:"ANALYSIS_DATE_DETECTION_RATIO" env-default:"0.8"`
	DateInvalidCriticalPercentage float64 `yaml:"date_invalid_critical_percentage" env:"ANALYSIS_DATE_INVALID_CRITICAL_PERCENTAGE" env-default:"0.05"`

	Scoring    ScoringOptions    `yaml:"scoring"`
	Complexity ComplexityOptions `yaml:"complexity"`
	Mapping    MappingOptions    `yaml:"mapping"`
}

// ScoringOptions tunes the quality score and cleanup estimate.
type ScoringOptions struct {
	CriticalWeight   float64 `yaml:"critical_weight" env:"SCORING_CRITICAL_WEIGHT" env-default:"15"`
	WarningWeight    float64 `yaml:"warning_weight" env:"SCORING_WARNING_WEIGHT" env-default:"5"`
	InfoWeight       float64 `yaml:"info_weight" env:"SCORING_INFO_WEIGHT" env-default:"1"`
	ExcellentMin     float64 `yaml:"excellent_min" env:"SCORING_EXCELLENT_MIN" env-default:"90"`
	GoodMin          float64 `yaml:"good_min" env:"SCORING_GOOD_MIN" env-default:"75"`
	FairMin          float64 `yaml:"fair_min" env:"SCORING_FAIR_MIN" env-default:"50"`
	HoursPerCritical float64 `yaml:"hours_per_critical" env:"SCORING_HOURS_PER_CRITICAL" env-default:"4"`
	HoursPerWarning  float64 `yaml:"hours_per_warning" env:"SCORING_HOURS_PER_WARNING" env-default:"1"`
	HoursPerInfo     float64 `yaml:"hours_per_info" env:"SCORING_HOURS_PER_INFO" env-default:"0.1"`
}

// ComplexityOptions tunes the complexity scorer.
type ComplexityOptions struct {
	RowCountWarning      int64   `yaml:"row_count_warning" env:"COMPLEXITY_ROW_COUNT_WARNING" env-default:"1000000"`
	RowCountHigh         int64   `yaml:"row_count_high" env:"COMPLEXITY_ROW_COUNT_HIGH" env-default:"10000000"`
	RowCountCritical     int64   `yaml:"row_count_critical" env:"COMPLEXITY_ROW_COUNT_CRITICAL" env-default:"100000000"`
	TableCountThreshold  int     `yaml:"table_count_threshold" env:"COMPLEXITY_TABLE_COUNT_THRESHOLD" env-default:"20"`
	DepthThreshold       int     `yaml:"depth_threshold" env:"COMPLEXITY_DEPTH_THRESHOLD" env-default:"3"`
	ArrayFieldThreshold  int     `yaml:"array_field_threshold" env:"COMPLEXITY_ARRAY_FIELD_THRESHOLD" env-default:"5"`
	ThrottledRateWarning float64 `yaml:"throttled_rate_warning" env:"COMPLEXITY_THROTTLED_RATE_WARNING" env-default:"0.01"`
	MediumPoints         int     `yaml:"medium_points" env:"COMPLEXITY_MEDIUM_POINTS" env-default:"3"`
	HighPoints           int     `yaml:"high_points" env:"COMPLEXITY_HIGH_POINTS" env-default:"6"`
	BaseDaysLow          float64 `yaml:"base_days_low" env:"COMPLEXITY_BASE_DAYS_LOW" env-default:"5"`
	BaseDaysMedium       float64 `yaml:"base_days_medium" env:"COMPLEXITY_BASE_DAYS_MEDIUM" env-default:"15"`
	BaseDaysHigh         float64 `yaml:"base_days_high" env:"COMPLEXITY_BASE_DAYS_HIGH" env-default:"30"`
	DaysPerTableLow      float64 `yaml:"days_per_table_low" env:"COMPLEXITY_DAYS_PER_TABLE_LOW" env-default:"0.5"`
	DaysPerTableMedium   float64 `yaml:"days_per_table_medium" env:"COMPLEXITY_DAYS_PER_TABLE_MEDIUM" env-default:"1"`
	DaysPerTableHigh     float64 `yaml:"days_per_table_high" env:"COMPLEXITY_DAYS_PER_TABLE_HIGH" env-default:"2"`
}

// MappingOptions tunes the relational mapper.
type MappingOptions struct {
	FlattenNestedObjects     bool    `yaml:"flatten_nested_objects" env:"MAPPING_FLATTEN_NESTED_OBJECTS" env-default:"false"`
	FlattenMaxFields         int     `yaml:"flatten_max_fields" env:"MAPPING_FLATTEN_MAX_FIELDS" env-default:"6"`
	ManyToManyShareRatio     float64 `yaml:"many_to_many_share_ratio" env:"MAPPING_MANY_TO_MANY_SHARE_RATIO" env-default:"0.3"`
	IdentifierMaxLength      int     `yaml:"identifier_max_length" env:"MAPPING_IDENTIFIER_MAX_LENGTH" env-default:"128"`
	QueryIndexMinSelectivity float64 `yaml:"query_index_min_selectivity" env:"MAPPING_QUERY_INDEX_MIN_SELECTIVITY" env-default:"0.1"`
}

// DefaultAnalysisOptions returns the documented defaults.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		SampleSize:                       1000,
		MaxConcurrentContainers:          4,
		MaxArrayElements:                 100,
		MaxNestingDepth:                  8,
		SkipRateThreshold:                0.10,
		MaxSampleRecords:                 5,
		NullThresholdWarning:             0.05,
		NullThresholdCritical:            0.15,
		DuplicateThresholdCritical:       0.01,
		TopDuplicateGroups:               10,
		CandidateKeySelectivity:          0.95,
		UniqueConstraintMaxDuplicateRate: 0,
		TypeDominanceThreshold:           0.95,
		TypeMismatchCriticalRatio:        0.20,
		OutlierZScoreThreshold:           3,
		OutlierIQRMultiplier:             1.5,
		MinOutlierSampleSize:             4,
		OutlierWarningPercentage:         0.05,
		MaxStringLengthForVarchar:        4000,
		EncodingCriticalPercentage:       0.05,
		MinReasonableDate:                "1900-01-01",
		MaxReasonableYears:               10,
		DateDetectionRatio:               0.8,
		DateInvalidCriticalPercentage:    0.05,
		Scoring: ScoringOptions{
			CriticalWeight:   15,
			WarningWeight:    5,
			InfoWeight:       1,
			ExcellentMin:     90,
			GoodMin:          75,
			FairMin:          50,
			HoursPerCritical: 4,
			HoursPerWarning:  1,
			HoursPerInfo:     0.1,
		},
		Complexity: ComplexityOptions{
			RowCountWarning:      1_000_000,
			RowCountHigh:         10_000_000,
			RowCountCritical:     100_000_000,
			TableCountThreshold:  20,
			DepthThreshold:       3,
			ArrayFieldThreshold:  5,
			ThrottledRateWarning: 0.01,
			MediumPoints:         3,
			HighPoints:           6,
			BaseDaysLow:          5,
			BaseDaysMedium:       15,
			BaseDaysHigh:         30,
			DaysPerTableLow:      0.5,
			DaysPerTableMedium:   1,
			DaysPerTableHigh:     2,
		},
		Mapping: MappingOptions{
			FlattenNestedObjects:     false,
			FlattenMaxFields:         6,
			ManyToManyShareRatio:     0.3,
			IdentifierMaxLength:      128,
			QueryIndexMinSelectivity: 0.1,
		},
	}
}

// IsRequiredRate reports whether a field absent or null in absentOrNull of
// total observations should map to a NOT NULL column.
func (o AnalysisOptions) IsRequiredRate(absentOrNull, total int) bool {
	if total <= 0 {
		return false
	}
	return float64(absentOrNull)/float64(total) < o.NullThresholdWarning
}

// MinDate parses MinReasonableDate.
func (o AnalysisOptions) MinDate() (time.Time, error) {
	return time.Parse(dateLayout, o.MinReasonableDate)
}

// MaxDate returns the latest reasonable date relative to now.
func (o AnalysisOptions) MaxDate(now time.Time) time.Time {
	return now.AddDate(o.MaxReasonableYears, 0, 0)
}

// Validate rejects options that would make the analysis meaningless.
// Every failure is a *apperrors.ConfigurationError.
func (o AnalysisOptions) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"sample_size", o.SampleSize},
		{"max_concurrent_containers", o.MaxConcurrentContainers},
		{"max_array_elements", o.MaxArrayElements},
		{"max_nesting_depth", o.MaxNestingDepth},
		{"max_sample_records", o.MaxSampleRecords},
		{"top_duplicate_groups", o.TopDuplicateGroups},
		{"min_outlier_sample_size", o.MinOutlierSampleSize},
		{"max_string_length_for_varchar", o.MaxStringLengthForVarchar},
		{"mapping.identifier_max_length", o.Mapping.IdentifierMaxLength},
		{"mapping.flatten_max_fields", o.Mapping.FlattenMaxFields},
		{"complexity.medium_points", o.Complexity.MediumPoints},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return &apperrors.ConfigurationError{Field: p.field, Reason: "must be positive"}
		}
	}

	rates := []struct {
		field string
		value float64
	}{
		{"skip_rate_threshold", o.SkipRateThreshold},
		{"null_threshold_warning", o.NullThresholdWarning},
		{"null_threshold_critical", o.NullThresholdCritical},
		{"duplicate_threshold_critical", o.DuplicateThresholdCritical},
		{"candidate_key_selectivity", o.CandidateKeySelectivity},
		{"unique_constraint_max_duplicate_rate", o.UniqueConstraintMaxDuplicateRate},
		{"type_dominance_threshold", o.TypeDominanceThreshold},
		{"type_mismatch_critical_ratio", o.TypeMismatchCriticalRatio},
		{"outlier_warning_percentage", o.OutlierWarningPercentage},
		{"encoding_critical_percentage", o.EncodingCriticalPercentage},
		{"date_detection_ratio", o.DateDetectionRatio},
		{"date_invalid_critical_percentage", o.DateInvalidCriticalPercentage},
		{"mapping.many_to_many_share_ratio", o.Mapping.ManyToManyShareRatio},
		{"mapping.query_index_min_selectivity", o.Mapping.QueryIndexMinSelectivity},
		{"complexity.throttled_rate_warning", o.Complexity.ThrottledRateWarning},
	}
	for _, r := range rates {
		if math.IsNaN(r.value) || r.value < 0 || r.value > 1 {
			return &apperrors.ConfigurationError{Field: r.field, Reason: "must be between 0 and 1"}
		}
	}

	nonNegative := []struct {
		field string
		value float64
	}{
		{"outlier_zscore_threshold", o.OutlierZScoreThreshold},
		{"outlier_iqr_multiplier", o.OutlierIQRMultiplier},
		{"scoring.critical_weight", o.Scoring.CriticalWeight},
		{"scoring.warning_weight", o.Scoring.WarningWeight},
		{"scoring.info_weight", o.Scoring.InfoWeight},
		{"scoring.hours_per_critical", o.Scoring.HoursPerCritical},
		{"scoring.hours_per_warning", o.Scoring.HoursPerWarning},
		{"scoring.hours_per_info", o.Scoring.HoursPerInfo},
		{"complexity.base_days_low", o.Complexity.BaseDaysLow},
		{"complexity.days_per_table_low", o.Complexity.DaysPerTableLow},
	}
	for _, n := range nonNegative {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) || n.value < 0 {
			return &apperrors.ConfigurationError{Field: n.field, Reason: "must not be negative"}
		}
	}
	if o.OutlierZScoreThreshold == 0 {
		return &apperrors.ConfigurationError{Field: "outlier_zscore_threshold", Reason: "must be positive"}
	}

	counts := []struct {
		field string
		value int
	}{
		{"max_reasonable_years", o.MaxReasonableYears},
		{"complexity.table_count_threshold", o.Complexity.TableCountThreshold},
		{"complexity.depth_threshold", o.Complexity.DepthThreshold},
		{"complexity.array_field_threshold", o.Complexity.ArrayFieldThreshold},
	}
	for _, n := range counts {
		if n.value < 0 {
			return &apperrors.ConfigurationError{Field: n.field, Reason: "must not be negative"}
		}
	}

	if o.NullThresholdWarning > o.NullThresholdCritical {
		return &apperrors.ConfigurationError{Field: "null_threshold_warning", Reason: "must not exceed null_threshold_critical"}
	}

	s := o.Scoring
	if !(s.ExcellentMin > s.GoodMin && s.GoodMin > s.FairMin && s.FairMin >= 0 && s.ExcellentMin <= 100) {
		return &apperrors.ConfigurationError{Field: "scoring", Reason: "rating bands must satisfy 100 >= excellent > good > fair >= 0"}
	}
	if !(s.CriticalWeight >= s.WarningWeight && s.WarningWeight >= s.InfoWeight) {
		return &apperrors.ConfigurationError{Field: "scoring", Reason: "weights must satisfy critical >= warning >= info"}
	}

	c := o.Complexity
	if !(c.RowCountWarning > 0 && c.RowCountWarning < c.RowCountHigh && c.RowCountHigh < c.RowCountCritical) {
		return &apperrors.ConfigurationError{Field: "complexity.row_count", Reason: "thresholds must be positive and increasing"}
	}
	if c.HighPoints <= c.MediumPoints {
		return &apperrors.ConfigurationError{Field: "complexity.high_points", Reason: "must exceed medium_points"}
	}
	if !(c.BaseDaysLow <= c.BaseDaysMedium && c.BaseDaysMedium <= c.BaseDaysHigh) ||
		!(c.DaysPerTableLow <= c.DaysPerTableMedium && c.DaysPerTableMedium <= c.DaysPerTableHigh) {
		return &apperrors.ConfigurationError{Field: "complexity.days", Reason: "day estimates must not decrease with complexity"}
	}

	minDate, err := o.MinDate()
	if err != nil {
		return &apperrors.ConfigurationError{Field: "min_reasonable_date", Reason: "must use YYYY-MM-DD"}
	}
	if !minDate.Before(o.MaxDate(time.Now())) {
		return &apperrors.ConfigurationError{Field: "min_reasonable_date", Reason: "must be before the max reasonable date"}
	}

	return nil
}
