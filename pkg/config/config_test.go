package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
env: "test"
analysis:
  sample_size: 250
  null_threshold_critical: 0.2
source:
  type: file
  directory: /data/samples
containers:
  - name: orders
    partition_key_path: /customerId
    document_count: 1500000
    query_fields: [status]
  - name: customers
`)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ANALYSIS_SAMPLE_SIZE", "500")

	cfg, err := Load(path, "test-version")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, 500, cfg.Analysis.SampleSize)
	assert.Equal(t, 0.2, cfg.Analysis.NullThresholdCritical)
	assert.Equal(t, 0.05, cfg.Analysis.NullThresholdWarning, "default should apply")
	assert.Equal(t, "/data/samples", cfg.Source.Directory)

	require.Len(t, cfg.Containers, 2)
	assert.Equal(t, "orders", cfg.Containers[0].Name)
	assert.Equal(t, "customerId", cfg.Containers[0].PartitionKeyField())
	assert.Equal(t, int64(1500000), cfg.Containers[0].DocumentCount)
	assert.Equal(t, []string{"orders", "customers"}, cfg.ContainerNames())
}

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("SOURCE_TYPE", "file")
	t.Setenv("ANALYSIS_TYPE_DOMINANCE_THRESHOLD", "0.9")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "v1")
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Analysis.TypeDominanceThreshold)
	assert.Equal(t, 1000, cfg.Analysis.SampleSize)
	assert.Equal(t, "sqlserver", cfg.Target.Dialect)
}

func TestLoad_InvalidAnalysisOptionsIsFatal(t *testing.T) {
	path := writeConfig(t, `
analysis:
  null_threshold_warning: -0.5
`)

	_, err := Load(path, "v1")
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))

	var cfgErr *apperrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "null_threshold_warning", cfgErr.Field)
}

func TestLoad_MongoRequiresURI(t *testing.T) {
	path := writeConfig(t, `
source:
  type: mongo
  database: shop
`)
	t.Setenv("SOURCE_URI", "")

	_, err := Load(path, "v1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestDefaultAnalysisOptions_Valid(t *testing.T) {
	assert.NoError(t, DefaultAnalysisOptions().Validate())
}

func TestAnalysisOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *AnalysisOptions)
		field  string
	}{
		{"zero sample size", func(o *AnalysisOptions) { o.SampleSize = 0 }, "sample_size"},
		{"zero workers", func(o *AnalysisOptions) { o.MaxConcurrentContainers = 0 }, "max_concurrent_containers"},
		{"negative null threshold", func(o *AnalysisOptions) { o.NullThresholdCritical = -1 }, "null_threshold_critical"},
		{"rate above one", func(o *AnalysisOptions) { o.TypeDominanceThreshold = 1.5 }, "type_dominance_threshold"},
		{"warning above critical", func(o *AnalysisOptions) { o.NullThresholdWarning = 0.5 }, "null_threshold_warning"},
		{"negative z threshold", func(o *AnalysisOptions) { o.OutlierZScoreThreshold = -3 }, "outlier_zscore_threshold"},
		{"bad date", func(o *AnalysisOptions) { o.MinReasonableDate = "01/01/1900" }, "min_reasonable_date"},
		{"min date in far future", func(o *AnalysisOptions) { o.MinReasonableDate = "9999-01-01" }, "min_reasonable_date"},
		{"inverted bands", func(o *AnalysisOptions) { o.Scoring.GoodMin = 95 }, "scoring"},
		{"inverted row counts", func(o *AnalysisOptions) { o.Complexity.RowCountHigh = 10 }, "complexity.row_count"},
		{"high points not above medium", func(o *AnalysisOptions) { o.Complexity.HighPoints = 3 }, "complexity.high_points"},
		{"negative max reasonable years", func(o *AnalysisOptions) { o.MaxReasonableYears = -1 }, "max_reasonable_years"},
		{"negative table count threshold", func(o *AnalysisOptions) { o.Complexity.TableCountThreshold = -1 }, "complexity.table_count_threshold"},
		{"negative depth threshold", func(o *AnalysisOptions) { o.Complexity.DepthThreshold = -2 }, "complexity.depth_threshold"},
		{"negative array field threshold", func(o *AnalysisOptions) { o.Complexity.ArrayFieldThreshold = -5 }, "complexity.array_field_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultAnalysisOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			require.Error(t, err)

			var cfgErr *apperrors.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
