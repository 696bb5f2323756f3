package models

// ComplexityLevel is the overall migration complexity bucket.
type ComplexityLevel string

const (
	ComplexityLow    ComplexityLevel = "low"
	ComplexityMedium ComplexityLevel = "medium"
	ComplexityHigh   ComplexityLevel = "high"
)

// ComplexityFactor is one triggered signal and the metric behind it.
type ComplexityFactor struct {
	Name        string   `json:"name"`
	Metric      string   `json:"metric"`
	Value       float64  `json:"value"`
	Threshold   float64  `json:"threshold"`
	Severity    Severity `json:"severity"`
	Points      int      `json:"points"`
	Description string   `json:"description"`
}

// MigrationComplexity is computed once over the finished assessment.
type MigrationComplexity struct {
	OverallComplexity      ComplexityLevel    `json:"overall_complexity"`
	Score                  int                `json:"score"`
	Factors                []ComplexityFactor `json:"factors"`
	EstimatedMigrationDays float64            `json:"estimated_migration_days"`
	Risks                  []string           `json:"risks,omitempty"`
	Assumptions            []string           `json:"assumptions,omitempty"`
	TotalTables            int                `json:"total_tables"`
	SharedSchemaCount      int                `json:"shared_schema_count"`
	MaxNestingDepth        int                `json:"max_nesting_depth"`
	TotalDocuments         int64              `json:"total_documents"`
	CriticalIssues         int                `json:"critical_issues"`
	ArrayFields            int                `json:"array_fields"`
}
