package models

import "time"

// ContainerStatus is the outcome of one container's pipeline.
type ContainerStatus string

const (
	StatusCompleted ContainerStatus = "completed"
	StatusPartial   ContainerStatus = "partial"
	StatusFailed    ContainerStatus = "failed"
)

// Warning codes attached to containers and runs.
const (
	WarningInputError       = "input_error"
	WarningPartialAnalysis  = "partial_analysis"
	WarningMetrics          = "metrics_unavailable"
	WarningCheckerFailure   = "checker_failure"
	WarningContainerFailure = "container_failure"
	WarningMapping          = "mapping"
)

// AnalysisWarning flags a degraded or missing result so it is never silently dropped.
type AnalysisWarning struct {
	Container string `json:"container,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// ContainerAssessment is everything learned about one container.
type ContainerAssessment struct {
	Container string              `json:"container"`
	Status    ContainerStatus     `json:"status"`
	Metadata  ContainerMetadata   `json:"metadata"`
	Metrics   *PerformanceMetrics `json:"metrics,omitempty"`
	Profile   *SchemaProfile      `json:"profile,omitempty"`
	Quality   *QualityReport      `json:"quality,omitempty"`
	Summary   *QualitySummary     `json:"summary,omitempty"`
	Mapping   *ContainerMapping   `json:"mapping,omitempty"`
	Warnings  []AnalysisWarning   `json:"warnings,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Degrade marks a completed container partial and records why.
func (c *ContainerAssessment) Degrade(code, message string) {
	if c.Status == StatusCompleted {
		c.Status = StatusPartial
	}
	c.Warnings = append(c.Warnings, AnalysisWarning{Container: c.Container, Code: code, Message: message})
}

// Assessment is the full result of one analysis run.
type Assessment struct {
	ID                  string                `json:"id"`
	CreatedAt           time.Time             `json:"created_at"`
	Containers          []ContainerAssessment `json:"containers"`
	SharedSchemas       []SharedSchema        `json:"shared_schemas"`
	Complexity          MigrationComplexity   `json:"complexity"`
	OverallQualityScore float64               `json:"overall_quality_score"`
	ReadyForMigration   bool                  `json:"ready_for_migration"`
	Warnings            []AnalysisWarning     `json:"warnings,omitempty"`
}

// Container returns the assessment for name, if present.
func (a *Assessment) Container(name string) (*ContainerAssessment, bool) {
	for i := range a.Containers {
		if a.Containers[i].Container == name {
			return &a.Containers[i], true
		}
	}
	return nil, false
}

// Mappings returns the mapping of every container that produced one.
func (a *Assessment) Mappings() []*ContainerMapping {
	var out []*ContainerMapping
	for i := range a.Containers {
		if a.Containers[i].Mapping != nil {
			out = append(out, a.Containers[i].Mapping)
		}
	}
	return out
}

// SharedSchema returns the shared schema with id, if present.
func (a *Assessment) SharedSchema(id string) (*SharedSchema, bool) {
	for i := range a.SharedSchemas {
		if a.SharedSchemas[i].SchemaID == id {
			return &a.SharedSchemas[i], true
		}
	}
	return nil, false
}

// AssessmentSummary is the listing view of a stored assessment.
type AssessmentSummary struct {
	ID                  string          `json:"id"`
	CreatedAt           time.Time       `json:"created_at"`
	ContainerCount      int             `json:"container_count"`
	OverallQualityScore float64         `json:"overall_quality_score"`
	ReadyForMigration   bool            `json:"ready_for_migration"`
	Complexity          ComplexityLevel `json:"complexity"`
}

// Summary returns the listing view of a.
func (a *Assessment) Summary() AssessmentSummary {
	return AssessmentSummary{
		ID:                  a.ID,
		CreatedAt:           a.CreatedAt,
		ContainerCount:      len(a.Containers),
		OverallQualityScore: a.OverallQualityScore,
		ReadyForMigration:   a.ReadyForMigration,
		Complexity:          a.Complexity.OverallComplexity,
	}
}
