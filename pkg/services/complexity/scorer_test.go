package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

func newTestScorer() *scorer {
	return NewScorer(config.DefaultAnalysisOptions().Complexity, zap.NewNop()).(*scorer)
}

func field(name string, tag models.TypeTag, depth int) *models.FieldInfo {
	return &models.FieldInfo{
		Name:          name,
		Path:          name,
		DetectedTypes: []models.TypeTag{tag},
		TypeCounts:    map[models.TypeTag]int{tag: 1},
		Depth:         depth,
	}
}

func containerAssessment(name string, docs int64, tables int, critical int) models.ContainerAssessment {
	mapping := &models.ContainerMapping{Container: name, TableName: name}
	for i := 1; i < tables; i++ {
		mapping.ChildTables = append(mapping.ChildTables, models.ChildTableMapping{TableName: name + "_child"})
	}
	return models.ContainerAssessment{
		Container: name,
		Status:    models.StatusCompleted,
		Metadata:  models.ContainerMetadata{Name: name, DocumentCount: docs},
		Profile: &models.SchemaProfile{
			Container:    name,
			TotalSampled: 100,
			Union:        models.DocumentSchema{Fields: map[string]*models.FieldInfo{"id": field("id", models.TypeString, 1)}},
		},
		Summary: &models.QualitySummary{
			Container:        name,
			CountsBySeverity: map[models.Severity]int{models.SeverityCritical: critical},
		},
		Mapping: mapping,
	}
}

func factorNames(c models.MigrationComplexity) []string {
	var out []string
	for _, f := range c.Factors {
		out = append(out, f.Name)
	}
	return out
}

func TestScore_SimpleAssessmentIsLow(t *testing.T) {
	a := &models.Assessment{Containers: []models.ContainerAssessment{containerAssessment("orders", 5000, 2, 0)}}

	c := newTestScorer().Score(a)

	assert.Equal(t, models.ComplexityLow, c.OverallComplexity)
	assert.Equal(t, 0, c.Score)
	assert.Empty(t, c.Factors)
	assert.NotNil(t, c.Factors)
	assert.Equal(t, 2, c.TotalTables)
	assert.Equal(t, int64(5000), c.TotalDocuments)
	assert.Equal(t, 5+2*0.5, c.EstimatedMigrationDays)
	assert.Contains(t, c.Assumptions, "no performance metrics were supplied; throughput risk was not assessed")
}

func TestScore_RowCountThresholds(t *testing.T) {
	tests := []struct {
		name       string
		docs       int64
		wantPoints int
		wantSev    models.Severity
	}{
		{"below warning", 999_999, 0, models.SeverityInfo},
		{"warning", 1_000_000, 1, models.SeverityWarning},
		{"high priority", 10_000_000, 2, models.SeverityWarning},
		{"critical", 100_000_000, 3, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &models.Assessment{Containers: []models.ContainerAssessment{containerAssessment("orders", tt.docs, 1, 0)}}
			c := newTestScorer().Score(a)

			assert.Equal(t, tt.wantPoints, c.Score)
			if tt.wantPoints == 0 {
				assert.Empty(t, c.Factors)
				return
			}
			require.Len(t, c.Factors, 1)
			assert.Equal(t, FactorRowCount, c.Factors[0].Name)
			assert.Equal(t, tt.wantSev, c.Factors[0].Severity)
			assert.Equal(t, float64(tt.docs), c.Factors[0].Value)
		})
	}
}

func TestScore_HighComplexity(t *testing.T) {
	orders := containerAssessment("orders", 150_000_000, 3, 2)
	orders.Profile.Union.Fields["lines"] = field("lines", models.TypeArray, 1)
	orders.Profile.Union.Fields["deep"] = field("deep", models.TypeString, 5)

	c := newTestScorer().Score(&models.Assessment{Containers: []models.ContainerAssessment{orders}})

	assert.Equal(t, []string{FactorRowCount, FactorNestingDepth, FactorCriticalIssues}, factorNames(c))
	assert.Equal(t, 6, c.Score)
	assert.Equal(t, models.ComplexityHigh, c.OverallComplexity)
	assert.Equal(t, 30+3*2.0, c.EstimatedMigrationDays)
	assert.Equal(t, 1, c.ArrayFields)
	assert.Equal(t, 5, c.MaxNestingDepth)
	assert.Equal(t, 2, c.CriticalIssues)

	require.Len(t, c.Risks, 3)
	assert.Contains(t, c.Risks[2], "critical_issues=2")
}

func TestScore_MediumFromStructure(t *testing.T) {
	a := &models.Assessment{
		Containers: []models.ContainerAssessment{
			containerAssessment("orders", 100, 25, 0),
		},
		SharedSchemas: []models.SharedSchema{{SchemaID: "ss_1", UsageCount: 2}},
	}
	a.Containers[0].Status = models.StatusPartial

	c := newTestScorer().Score(a)

	assert.Equal(t, []string{FactorTableCount, FactorSharedSchemas, FactorDegraded}, factorNames(c))
	assert.Equal(t, models.ComplexityMedium, c.OverallComplexity)
	assert.Equal(t, 15+25*1.0, c.EstimatedMigrationDays)
}

func TestScore_ThrottlingNeedsMetrics(t *testing.T) {
	orders := containerAssessment("orders", 100, 1, 0)
	a := &models.Assessment{Containers: []models.ContainerAssessment{orders}}
	assert.Empty(t, newTestScorer().Score(a).Factors)

	a.Containers[0].Metrics = &models.PerformanceMetrics{ThrottledRate: 0.05}
	c := newTestScorer().Score(a)
	assert.Equal(t, []string{FactorThrottling}, factorNames(c))
	assert.NotContains(t, c.Assumptions, "no performance metrics were supplied; throughput risk was not assessed")
}

func TestScore_SampledCountFallback(t *testing.T) {
	orders := containerAssessment("orders", 0, 1, 0)

	c := newTestScorer().Score(&models.Assessment{Containers: []models.ContainerAssessment{orders}})
	assert.Equal(t, int64(100), c.TotalDocuments)
	assert.Contains(t, c.Assumptions, "1 containers had no declared document count; sample size was used instead")
}

func TestEstimateDays_Monotonic(t *testing.T) {
	s := newTestScorer()
	levels := []models.ComplexityLevel{models.ComplexityLow, models.ComplexityMedium, models.ComplexityHigh}

	for tables := 0; tables < 50; tables++ {
		for i := 1; i < len(levels); i++ {
			assert.LessOrEqual(t, s.estimateDays(levels[i-1], tables), s.estimateDays(levels[i], tables))
		}
		for _, level := range levels {
			assert.LessOrEqual(t, s.estimateDays(level, tables), s.estimateDays(level, tables+1))
		}
	}
}
