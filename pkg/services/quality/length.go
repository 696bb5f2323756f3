package quality

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/inference"
)

// Histogram bins in characters, inclusive. The last bin is unbounded.
var lengthBins = []struct {
	label    string
	min, max int
}{
	{"0-10", 0, 10},
	{"11-50", 11, 50},
	{"51-100", 51, 100},
	{"101-255", 101, 255},
	{"256-1000", 256, 1000},
	{"1001-4000", 1001, 4000},
	{">4000", 4001, -1},
}

// CheckLengths profiles string lengths per field and sizes a column for them.
// Lengths are counted in characters, not bytes.
func CheckLengths(ctx context.Context, in *Input, opts config.AnalysisOptions) ([]models.StringLengthResult, []models.AnalysisFailure, error) {
	var stringFields []*models.FieldInfo
	for _, f := range in.leaves() {
		if f.HasType(models.TypeString) {
			stringFields = append(stringFields, f)
		}
	}

	return forEachField(ctx, CheckerLength, stringFields, func(f *models.FieldInfo) (models.StringLengthResult, bool) {
		var lengths []int
		var longIDs []string
		for _, o := range in.observe(f.Path) {
			if o.value.Kind != models.KindString {
				continue
			}
			n := utf8.RuneCountInString(o.value.Str)
			lengths = append(lengths, n)
			if n > opts.MaxStringLengthForVarchar {
				longIDs = limitIDs(longIDs, o.docID, opts.MaxSampleRecords)
			}
		}
		if len(lengths) == 0 {
			return models.StringLengthResult{}, false
		}
		r := profileLengths(f.Path, lengths, opts)
		r.SampleDocIDs = longIDs
		for _, n := range lengths {
			if n > opts.MaxStringLengthForVarchar {
				r.OverLimitCount++
			}
		}
		return r, true
	})
}

func profileLengths(field string, lengths []int, opts config.AnalysisOptions) models.StringLengthResult {
	sorted := append([]int(nil), lengths...)
	sort.Ints(sorted)

	asFloat := make([]float64, len(sorted))
	total := 0
	r := models.StringLengthResult{
		Field:     field,
		Count:     len(sorted),
		MinLength: sorted[0],
		MaxLength: sorted[len(sorted)-1],
	}
	for i, n := range sorted {
		asFloat[i] = float64(n)
		total += n
		if n == 0 {
			r.EmptyCount++
		}
	}
	r.AvgLength = float64(total) / float64(len(sorted))
	r.MedianLength = quantile(asFloat, 0.5)
	r.P95Length = nearestRank(sorted, 0.95)
	r.P99Length = nearestRank(sorted, 0.99)

	r.Histogram = make([]models.LengthBucket, len(lengthBins))
	for i, b := range lengthBins {
		r.Histogram[i] = models.LengthBucket{Label: b.label, Min: b.min, Max: b.max}
	}
	for _, n := range sorted {
		for i, b := range lengthBins {
			if n >= b.min && (b.max < 0 || n <= b.max) {
				r.Histogram[i].Count++
				break
			}
		}
	}

	limit := opts.MaxStringLengthForVarchar
	if r.P99Length <= limit {
		r.RecommendedType = inference.VarcharType(r.MaxLength, limit)
	} else {
		r.RecommendedType = inference.SQLTypeText
	}
	if r.MaxLength > limit {
		r.Severity = models.SeverityWarning
	} else {
		r.Severity = models.SeverityInfo
	}
	return r
}
