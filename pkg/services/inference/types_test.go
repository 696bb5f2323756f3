package inference

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

func TestLooksLikeTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"2024-01-15T10:30:00Z", true},
		{"2024-01-15T10:30:00.123456+02:00", true},
		{"2024-01-15T10:30:00", true},
		{"2024-01-15 10:30:00", true},
		{"2024-01-15", true},
		{"2024/01/15", true},
		{"01/15/2024", true},
		{"2023-13-45", true}, // shape only
		{"hello world", false},
		{"12345", false},
		{"2024-1-5", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeTimestamp(tt.input))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	got, ok := ParseTimestamp("2024-01-15T10:30:00Z")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), got)

	_, ok = ParseTimestamp("2023-13-45")
	assert.False(t, ok)

	got, ok = ParseTimestamp("01/15/2024")
	assert.True(t, ok)
	assert.Equal(t, 2024, got.Year())
}

func TestParseEpoch(t *testing.T) {
	sec, ok := ParseEpoch(1700000000)
	assert.True(t, ok)
	assert.Equal(t, 2023, sec.Year())

	ms, ok := ParseEpoch(1700000000000)
	assert.True(t, ok)
	assert.Equal(t, sec, ms)
}

func TestVarcharType(t *testing.T) {
	tests := []struct {
		maxLen int
		limit  int
		want   string
	}{
		{0, 4000, "NVARCHAR(10)"},
		{10, 4000, "NVARCHAR(10)"},
		{11, 4000, "NVARCHAR(25)"},
		{256, 4000, "NVARCHAR(500)"},
		{4000, 4000, "NVARCHAR(4000)"},
		{4001, 4000, "NVARCHAR(MAX)"},
		{2100, 3000, "NVARCHAR(3000)"},
		{900, 800, "NVARCHAR(MAX)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VarcharType(tt.maxLen, tt.limit), "maxLen=%d limit=%d", tt.maxLen, tt.limit)
	}
}

func TestWideningType(t *testing.T) {
	opts := config.DefaultAnalysisOptions()
	tests := []struct {
		name        string
		tags        []models.TypeTag
		maxLen      int
		allIntegral bool
		want        string
	}{
		{"string and number", []models.TypeTag{models.TypeString, models.TypeNumber}, 12, true, "NVARCHAR(50)"},
		{"long strings and number", []models.TypeTag{models.TypeString, models.TypeNumber}, 300, true, "NVARCHAR(500)"},
		{"bool and integer", []models.TypeTag{models.TypeBoolean, models.TypeNumber}, 0, true, "INT"},
		{"bool and float", []models.TypeTag{models.TypeBoolean, models.TypeNumber}, 0, false, "FLOAT"},
		{"object and string", []models.TypeTag{models.TypeObject, models.TypeString}, 5, false, "NVARCHAR(MAX)"},
		{"only null", []models.TypeTag{models.TypeNull}, 0, false, "NVARCHAR(255)"},
		{"single date with null", []models.TypeTag{models.TypeDate, models.TypeNull}, 0, false, "DATETIME2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WideningType(tt.tags, tt.maxLen, tt.allIntegral, 10, opts))
		})
	}
}

func TestRecommendType_DominanceThreshold(t *testing.T) {
	opts := config.DefaultAnalysisOptions()
	f := &models.FieldInfo{
		DetectedTypes: []models.TypeTag{models.TypeNumber, models.TypeString},
		TypeCounts:    map[models.TypeTag]int{models.TypeNumber: 99, models.TypeString: 1},
		AllIntegral:   true,
		MaxAbsNumber:  5e9,
		MaxLength:     3,
	}
	assert.Equal(t, "BIGINT", RecommendType(f, opts))

	f.TypeCounts = map[models.TypeTag]int{models.TypeNumber: 80, models.TypeString: 20}
	assert.Equal(t, "NVARCHAR(50)", RecommendType(f, opts))
}

func TestTagOf(t *testing.T) {
	assert.Equal(t, models.TypeDate, TagOf(models.String("2024-01-01")))
	assert.Equal(t, models.TypeString, TagOf(models.String("plain")))
	assert.Equal(t, models.TypeNumber, TagOf(models.Int(3)))
	assert.Equal(t, models.TypeArray, TagOf(models.Array()))
	assert.Equal(t, models.TypeObject, TagOf(models.Object()))
	assert.Equal(t, models.TypeNull, TagOf(models.Null()))
	assert.Equal(t, models.TypeBoolean, TagOf(models.Bool(true)))
}
