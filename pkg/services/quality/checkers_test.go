package quality

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/inference"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func doc(id string, fields ...models.Field) models.SampledDocument {
	return models.SampledDocument{ID: id, Root: models.Object(fields...)}
}

// newInput infers a profile for docs the same way the pipeline does.
func newInput(t *testing.T, docs []models.SampledDocument, meta models.ContainerMetadata) *Input {
	t.Helper()
	opts := config.DefaultAnalysisOptions()
	profile, err := inference.NewInferencer(opts, zap.NewNop()).Infer(context.Background(), "orders", docs)
	require.NoError(t, err)
	return &Input{
		Container: "orders",
		Documents: docs,
		Profile:   profile,
		Metadata:  meta,
		Now:       testNow,
	}
}

func findNull(t *testing.T, results []models.NullAnalysisResult, field string) models.NullAnalysisResult {
	t.Helper()
	for _, r := range results {
		if r.Field == field {
			return r
		}
	}
	t.Fatalf("no null result for %s", field)
	return models.NullAnalysisResult{}
}

// ============================================================================
// Null analysis
// ============================================================================

func TestCheckNulls_CriticalAtTwentyPercent(t *testing.T) {
	var docs []models.SampledDocument
	for i := 0; i < 100; i++ {
		email := models.String(fmt.Sprintf("u%d@example.com", i))
		if i < 20 {
			email = models.Null()
		}
		docs = append(docs, doc(fmt.Sprint(i), models.F("id", models.String(fmt.Sprint(i))), models.F("email", email)))
	}

	results, failures, err := CheckNulls(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)
	assert.Empty(t, failures)

	email := findNull(t, results, "email")
	assert.Equal(t, 20, email.NullCount)
	assert.Equal(t, 0, email.MissingCount)
	assert.Equal(t, 80, email.NonNullCount)
	assert.Equal(t, 0.20, email.NullPercentage)
	assert.Equal(t, models.SeverityCritical, email.Severity)
	assert.False(t, email.IsRecommendedRequired)
	assert.Len(t, email.SampleDocumentIDs, 5)
}

func TestCheckNulls_CountsPartitionDocuments(t *testing.T) {
	docs := []models.SampledDocument{
		doc("1", models.F("a", models.Int(1)), models.F("b", models.Null())),
		doc("2", models.F("a", models.Null())),
		doc("3", models.F("b", models.String("x"))),
	}
	results, _, err := CheckNulls(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, r.TotalDocuments, r.NullCount+r.MissingCount+r.NonNullCount, r.Field)
	}
}

func TestNullSeverityBands(t *testing.T) {
	opts := config.DefaultAnalysisOptions()
	tests := []struct {
		pct  float64
		want models.Severity
	}{
		{0, models.SeverityInfo},
		{0.049, models.SeverityInfo},
		{0.05, models.SeverityWarning},
		{0.149, models.SeverityWarning},
		{0.15, models.SeverityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nullSeverity(tt.pct, opts), "pct=%v", tt.pct)
	}
}

func TestCheckNulls_NestedFieldMissingWithParent(t *testing.T) {
	docs := []models.SampledDocument{
		doc("1", models.F("address", models.Object(models.F("city", models.String("Oslo"))))),
		doc("2"),
	}
	results, _, err := CheckNulls(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)

	city := findNull(t, results, "address.city")
	assert.Equal(t, 1, city.MissingCount)
	assert.Equal(t, 1, city.NonNullCount)
}

func TestCheckers_DottedKeys(t *testing.T) {
	var docs []models.SampledDocument
	for i, price := range []float64{10, 11, 12, 13, 14} {
		docs = append(docs, doc(fmt.Sprint(i),
			models.F("price.usd", models.Number(price)),
			models.F("sku.code", models.String(fmt.Sprintf("SKU-%03d", i))),
		))
	}
	in := newInput(t, docs, models.ContainerMetadata{})
	opts := config.DefaultAnalysisOptions()

	nulls, _, err := CheckNulls(context.Background(), in, opts)
	require.NoError(t, err)
	outliers, _, err := CheckOutliers(context.Background(), in, opts)
	require.NoError(t, err)
	lengths, _, err := CheckLengths(context.Background(), in, opts)
	require.NoError(t, err)
	dups, _, err := CheckDuplicates(context.Background(), in, opts)
	require.NoError(t, err)

	for _, path := range []string{`price\.usd`, `sku\.code`} {
		r := findNull(t, nulls, path)
		assert.Zero(t, r.MissingCount, path)
		assert.Equal(t, len(docs), r.NonNullCount, path)
		assert.True(t, r.IsRecommendedRequired, path)
	}

	require.Len(t, outliers, 1)
	assert.Equal(t, `price\.usd`, outliers[0].Field)
	assert.Equal(t, len(docs), outliers[0].Count)
	assert.Equal(t, 12.0, outliers[0].Median)

	require.Len(t, lengths, 1)
	assert.Equal(t, `sku\.code`, lengths[0].Field)
	assert.Equal(t, len(docs), lengths[0].Count)
	assert.Equal(t, 7, lengths[0].MaxLength)

	require.Len(t, dups, 2)
	for i, path := range []string{`price\.usd`, `sku\.code`} {
		assert.Equal(t, models.KeyKindCandidate, dups[i].KeyKind)
		assert.Equal(t, []string{path}, dups[i].KeyFields)
		assert.Equal(t, len(docs), dups[i].DocumentsWithKey, path)
	}
}

// ============================================================================
// Duplicate analysis
// ============================================================================

func TestCheckDuplicates_CandidateKeyScenario(t *testing.T) {
	var docs []models.SampledDocument
	for i := 0; i < 100; i++ {
		order := i
		if i >= 97 {
			// three values repeated once each
			order = i - 97
		}
		docs = append(docs, doc(fmt.Sprintf("d%d", i),
			models.F("id", models.String(fmt.Sprintf("d%d", i))),
			models.F("orderId", models.Int(int64(order)))))
	}

	results, failures, err := CheckDuplicates(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, results, 2)

	id := results[0]
	assert.Equal(t, models.KeyKindID, id.KeyKind)
	assert.Zero(t, id.DuplicateRecordCount)
	assert.Equal(t, models.SeverityInfo, id.Severity)

	order := results[1]
	assert.Equal(t, "orderId", order.KeyName)
	assert.Equal(t, models.KeyKindCandidate, order.KeyKind)
	assert.Equal(t, 100, order.DocumentsWithKey)
	assert.Equal(t, 3, order.DuplicateGroupCount)
	assert.Equal(t, 3, order.DuplicateRecordCount)
	assert.Equal(t, 6, order.AffectedRecordCount)
	assert.InDelta(t, 0.03, order.DuplicatePercentage, 1e-9)
	assert.Equal(t, models.SeverityCritical, order.Severity)
	require.Len(t, order.TopGroups, 3)
	assert.Equal(t, "0", order.TopGroups[0].KeyValue)
	assert.Equal(t, []string{"d0", "d97"}, order.TopGroups[0].DocumentIDs)
}

func TestCheckDuplicates_PartitionAndBusinessKeys(t *testing.T) {
	docs := []models.SampledDocument{
		doc("1", models.F("id", models.String("a")), models.F("tenant", models.String("t1")), models.F("sku", models.String("X"))),
		doc("2", models.F("id", models.String("a")), models.F("tenant", models.String("t2")), models.F("sku", models.String("X"))),
		doc("3", models.F("id", models.String("b")), models.F("tenant", models.String("t1")), models.F("sku", models.String("Y"))),
	}
	meta := models.ContainerMetadata{
		PartitionKeyPath: "/tenant",
		BusinessKeys:     [][]string{{"tenant", "sku"}},
	}

	results, _, err := CheckDuplicates(context.Background(), newInput(t, docs, meta), config.DefaultAnalysisOptions())
	require.NoError(t, err)

	byName := map[string]models.DuplicateAnalysisResult{}
	for _, r := range results {
		byName[r.KeyName] = r
	}

	assert.Equal(t, 1, byName["id"].DuplicateRecordCount, "id repeats across partitions")
	assert.Zero(t, byName["id+tenant"].DuplicateRecordCount, "id is unique within its partition")
	assert.Equal(t, models.KeyKindPartition, byName["id+tenant"].KeyKind)
	assert.Zero(t, byName["tenant+sku"].DuplicateRecordCount)
	assert.Equal(t, models.KeyKindBusiness, byName["tenant+sku"].KeyKind)
}

func TestCheckDuplicates_WarningBelowCriticalRate(t *testing.T) {
	var docs []models.SampledDocument
	for i := 0; i < 200; i++ {
		code := fmt.Sprintf("c%d", i)
		if i == 199 {
			code = "c0"
		}
		docs = append(docs, doc(fmt.Sprint(i), models.F("code", models.String(code))))
	}

	results, _, err := CheckDuplicates(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.005, results[0].DuplicatePercentage, 1e-9)
	assert.Equal(t, models.SeverityWarning, results[0].Severity)
}

// ============================================================================
// Type consistency
// ============================================================================

func TestCheckTypes(t *testing.T) {
	var docs []models.SampledDocument
	for i := 0; i < 10; i++ {
		price := models.Number(float64(i) + 0.5)
		if i < 3 {
			price = models.String("n/a")
		}
		docs = append(docs, doc(fmt.Sprint(i),
			models.F("price", price),
			models.F("name", models.String("widget")),
			models.F("note", models.Null())))
	}

	results, _, err := CheckTypes(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)

	byField := map[string]models.TypeConsistencyResult{}
	for _, r := range results {
		byField[r.Field] = r
	}
	assert.NotContains(t, byField, "note", "null-only fields have no type to check")

	name := byField["name"]
	assert.True(t, name.IsConsistent)
	assert.Equal(t, models.SeverityInfo, name.Severity)

	price := byField["price"]
	assert.Equal(t, models.TypeNumber, price.DominantType)
	assert.False(t, price.IsConsistent)
	assert.Equal(t, 3, price.MismatchCount)
	assert.InDelta(t, 0.3, price.MismatchRatio, 1e-9)
	assert.Equal(t, models.SeverityCritical, price.Severity)
	assert.Equal(t, "NVARCHAR(50)", price.RecommendedType)
	require.Len(t, price.Samples, 3)
	assert.Equal(t, models.TypeString, price.Samples[0].ActualType)
}

func TestDominantTag_TieBreak(t *testing.T) {
	assert.Equal(t, models.TypeNumber, dominantTag(map[models.TypeTag]int{
		models.TypeString: 2,
		models.TypeNumber: 2,
	}))
}

// ============================================================================
// Outliers
// ============================================================================

func TestDetectOutliers_TukeyOnly(t *testing.T) {
	opts := config.DefaultAnalysisOptions()
	r := detectOutliers("amount", []float64{1, 2, 2, 3, 100}, []string{"a", "b", "c", "d", "e"}, opts)

	assert.Equal(t, 2.0, r.Median)
	assert.Equal(t, 2.0, r.Q1)
	assert.Equal(t, 3.0, r.Q3)
	assert.Equal(t, 1.0, r.IQR)
	assert.Equal(t, 4.5, r.UpperFence)
	assert.InDelta(t, 21.6, r.Mean, 1e-9)

	require.Equal(t, 1, r.OutlierCount)
	assert.Equal(t, 0, r.ZScoreOutliers, "z of 100 is just under 2")
	assert.Equal(t, 1, r.TukeyOutliers)
	assert.Equal(t, "e", r.Samples[0].DocumentID)
	assert.Equal(t, models.DirectionHigh, r.Samples[0].Direction)
	assert.Less(t, r.Samples[0].ZScore, 3.0)
	assert.Equal(t, []string{models.RuleTukey}, r.Samples[0].Rules)
	assert.Equal(t, models.SeverityWarning, r.Severity)
}

func TestDetectOutliers_ConstantValues(t *testing.T) {
	r := detectOutliers("n", []float64{5, 5, 5, 5}, []string{"a", "b", "c", "d"}, config.DefaultAnalysisOptions())
	assert.Zero(t, r.OutlierCount)
	assert.Zero(t, r.StdDev)
	assert.Len(t, r.SkippedRules, 2)
	assert.Contains(t, r.SkippedRules[0], models.RuleZScore)
	assert.Contains(t, r.SkippedRules[1], models.RuleTukey)
	assert.Equal(t, models.SeverityInfo, r.Severity)
}

func TestDetectOutliers_ZeroIQRStillUsesZScore(t *testing.T) {
	values := make([]float64, 0, 20)
	ids := make([]string, 0, 20)
	for i := 0; i < 19; i++ {
		values = append(values, 10)
		ids = append(ids, fmt.Sprint(i))
	}
	values = append(values, 1000)
	ids = append(ids, "big")

	r := detectOutliers("n", values, ids, config.DefaultAnalysisOptions())
	assert.Len(t, r.SkippedRules, 1)
	assert.Contains(t, r.SkippedRules[0], models.RuleTukey)
	assert.Equal(t, 1, r.ZScoreOutliers)
	assert.Equal(t, "big", r.Samples[0].DocumentID)
}

func TestDetectOutliers_RuleAttribution(t *testing.T) {
	// Two clusters at 0 and 10 give IQR 10 and an upper fence of 25, so 22
	// stays inside the fences while its z-score exceeds 3.
	bimodal := make([]float64, 0, 101)
	for i := 0; i < 50; i++ {
		bimodal = append(bimodal, 0)
	}
	for i := 0; i < 50; i++ {
		bimodal = append(bimodal, 10)
	}
	bimodal = append(bimodal, 22)

	spread := make([]float64, 0, 21)
	for i := 1; i <= 20; i++ {
		spread = append(spread, float64(i))
	}
	spread = append(spread, 1000)

	tests := []struct {
		name   string
		values []float64
		zOnly  int
		tukey  int
		rules  []string
	}{
		{
			name:   "tukey only",
			values: []float64{1, 2, 2, 3, 100},
			tukey:  1,
			rules:  []string{models.RuleTukey},
		},
		{
			name:   "z-score only with nonzero IQR",
			values: bimodal,
			zOnly:  1,
			rules:  []string{models.RuleZScore},
		},
		{
			name:   "both rules",
			values: spread,
			zOnly:  1,
			tukey:  1,
			rules:  []string{models.RuleZScore, models.RuleTukey},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, len(tt.values))
			for i := range ids {
				ids[i] = fmt.Sprint(i)
			}
			last := ids[len(ids)-1]

			r := detectOutliers("n", tt.values, ids, config.DefaultAnalysisOptions())
			assert.Greater(t, r.IQR, 0.0)
			assert.Empty(t, r.SkippedRules)
			assert.Equal(t, tt.zOnly, r.ZScoreOutliers)
			assert.Equal(t, tt.tukey, r.TukeyOutliers)
			require.Equal(t, 1, r.OutlierCount)
			assert.Equal(t, last, r.Samples[0].DocumentID)
			assert.Equal(t, models.DirectionHigh, r.Samples[0].Direction)
			assert.Equal(t, tt.rules, r.Samples[0].Rules)
		})
	}
}

func TestPercentiles_NonDecreasing(t *testing.T) {
	tests := []struct {
		name   string
		sample []int
	}{
		{"right skewed", []int{1, 1, 1, 1, 2, 3, 5, 8, 200}},
		{"left skewed", []int{1, 180, 190, 195, 198, 199, 200, 200}},
		{"single element", []int{7}},
		{"all equal", []int{4, 4, 4, 4, 4}},
		{"two values", []int{1, 100}},
		{"two equal values", []int{3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := config.DefaultAnalysisOptions()

			l := profileLengths("s", tt.sample, opts)
			lengthSeq := []float64{
				float64(l.MinLength), l.MedianLength, float64(l.P95Length), float64(l.P99Length), float64(l.MaxLength),
			}
			assert.IsNonDecreasing(t, lengthSeq, "min, median, p95, p99, max")

			values := make([]float64, len(tt.sample))
			ids := make([]string, len(tt.sample))
			for i, n := range tt.sample {
				values[i] = float64(n)
				ids[i] = fmt.Sprint(i)
			}
			o := detectOutliers("n", values, ids, opts)
			assert.IsNonDecreasing(t, []float64{o.Min, o.Q1, o.Median, o.Q3, o.Max}, "min, q1, median, q3, max")
			assert.LessOrEqual(t, o.LowerFence, o.Q1)
			assert.GreaterOrEqual(t, o.UpperFence, o.Q3)
		})
	}
}

func TestCheckOutliers_SkipsSmallSamples(t *testing.T) {
	docs := []models.SampledDocument{
		doc("1", models.F("n", models.Int(1))),
		doc("2", models.F("n", models.Int(500))),
	}
	results, _, err := CheckOutliers(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, quantile(sorted, 0.25))
	assert.Equal(t, 2.5, quantile(sorted, 0.5))
	assert.Equal(t, 3.25, quantile(sorted, 0.75))
	assert.Equal(t, 4.0, quantile(sorted, 1))
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.3))
}

// ============================================================================
// String lengths
// ============================================================================

func TestProfileLengths(t *testing.T) {
	lengths := make([]int, 0, 100)
	for i := 1; i <= 100; i++ {
		lengths = append(lengths, i)
	}
	r := profileLengths("name", lengths, config.DefaultAnalysisOptions())

	assert.Equal(t, 1, r.MinLength)
	assert.Equal(t, 100, r.MaxLength)
	assert.Equal(t, 50.5, r.AvgLength)
	assert.Equal(t, 50.5, r.MedianLength)
	assert.Equal(t, 95, r.P95Length)
	assert.Equal(t, 99, r.P99Length)
	assert.Equal(t, "NVARCHAR(100)", r.RecommendedType)
	assert.Equal(t, models.SeverityInfo, r.Severity)

	counts := map[string]int{}
	for _, b := range r.Histogram {
		counts[b.Label] = b.Count
	}
	assert.Equal(t, 10, counts["0-10"])
	assert.Equal(t, 40, counts["11-50"])
	assert.Equal(t, 50, counts["51-100"])
}

func TestCheckLengths_OverLimit(t *testing.T) {
	opts := config.DefaultAnalysisOptions()
	opts.MaxStringLengthForVarchar = 20

	docs := []models.SampledDocument{
		doc("1", models.F("bio", models.String("short"))),
		doc("2", models.F("bio", models.String(strings.Repeat("\u00e9", 30)))),
	}
	results, _, err := CheckLengths(context.Background(), newInput(t, docs, models.ContainerMetadata{}), opts)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 30, r.MaxLength, "lengths are characters, not bytes")
	assert.Equal(t, 1, r.OverLimitCount)
	assert.Equal(t, []string{"2"}, r.SampleDocIDs)
	assert.Equal(t, "NVARCHAR(MAX)", r.RecommendedType)
	assert.Equal(t, models.SeverityWarning, r.Severity)
}

// ============================================================================
// Encoding
// ============================================================================

func TestClassifyString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []models.EncodingIssueType
	}{
		{"plain ascii", "hello", nil},
		{"accented", "caf\u00e9", []models.EncodingIssueType{models.EncodingNonASCII}},
		{"emoji", "hi 😀", []models.EncodingIssueType{models.EncodingNonASCII, models.EncodingSupplementaryPlane}},
		{"control", "a\x07b", []models.EncodingIssueType{models.EncodingControlCharacter}},
		{"tab is fine", "a\tb", nil},
		{"invalid bytes", "ab\xffcd", []models.EncodingIssueType{models.EncodingInvalidUTF8}},
		{"decomposed", "cafe\u0301", []models.EncodingIssueType{models.EncodingNonASCII, models.EncodingNonNormalized}},
		{"sql fragment", "1' OR '1'='1", []models.EncodingIssueType{models.EncodingInjectionPattern}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := classifyString(tt.input)
			var got []models.EncodingIssueType
			for issue := range found {
				got = append(got, issue)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestCheckEncoding_Severity(t *testing.T) {
	var docs []models.SampledDocument
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("name%d", i)
		switch i {
		case 0:
			name = "bad\xfe"
		case 1:
			name = "bell\x07"
		}
		docs = append(docs, doc(fmt.Sprint(i), models.F("name", models.String(name))))
	}

	results, _, err := CheckEncoding(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, models.EncodingInvalidUTF8, results[0].IssueType)
	assert.Equal(t, models.SeverityCritical, results[0].Severity)
	assert.Equal(t, "0xFE", results[0].Samples[0].HexCodes)

	assert.Equal(t, models.EncodingControlCharacter, results[1].IssueType)
	assert.InDelta(t, 0.1, results[1].AffectedPercentage, 1e-9)
	assert.Equal(t, models.SeverityCritical, results[1].Severity, "10% is over the 5% escalation point")
	assert.Equal(t, "U+0007", results[1].Samples[0].HexCodes)
}

// ============================================================================
// Dates
// ============================================================================

func TestCheckDates(t *testing.T) {
	values := []models.Value{
		models.String("2024-01-15T10:00:00Z"),
		models.String("2023-13-45"),
		models.String("1850-01-01"),
		models.String("2099-01-01"),
		models.Date(time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)),
		models.Null(),
	}
	var docs []models.SampledDocument
	for i, v := range values {
		docs = append(docs, doc(fmt.Sprint(i), models.F("createdAt", v)))
	}

	results, _, err := CheckDates(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 5, r.TotalValues)
	assert.Equal(t, 2, r.ValidCount)
	assert.Equal(t, 1, r.InvalidDateCount)
	assert.Equal(t, 1, r.TooOldCount)
	assert.Equal(t, 1, r.FutureCount)
	assert.InDelta(t, 0.6, r.InvalidPercentage, 1e-9)
	assert.Equal(t, models.SeverityCritical, r.Severity)
	require.NotNil(t, r.Earliest)
	assert.Equal(t, 2020, r.Earliest.Year())
	assert.Equal(t, 2024, r.Latest.Year())

	reasons := map[string]string{}
	for _, s := range r.Samples {
		reasons[s.DocumentID] = s.Reason
	}
	assert.Equal(t, reasonUnparseable, reasons["1"])
	assert.Equal(t, reasonTooOld, reasons["2"])
	assert.Equal(t, reasonFuture, reasons["3"])
}

func TestCheckDates_IgnoresNonDateFields(t *testing.T) {
	docs := []models.SampledDocument{
		doc("1", models.F("name", models.String("alice"))),
		doc("2", models.F("name", models.String("2024-01-01"))),
	}
	results, _, err := CheckDates(context.Background(), newInput(t, docs, models.ContainerMetadata{}), config.DefaultAnalysisOptions())
	require.NoError(t, err)
	assert.Empty(t, results, "50% date-shaped is under the detection ratio")
}

func TestAsTime_Epoch(t *testing.T) {
	got, ok := asTime(models.Int(1700000000000))
	require.True(t, ok)
	assert.Equal(t, 2023, got.Year())

	_, ok = asTime(models.Bool(true))
	assert.False(t, ok)
}
