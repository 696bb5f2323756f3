package quality

import (
	"context"
	"math"
	"sort"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/apperrors"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// CheckOutliers flags numeric values far from the bulk of the distribution by
// z-score and by Tukey fences. A rule whose spread is zero is skipped and
// noted instead of dividing by zero.
func CheckOutliers(ctx context.Context, in *Input, opts config.AnalysisOptions) ([]models.OutlierResult, []models.AnalysisFailure, error) {
	var numeric []*models.FieldInfo
	for _, f := range in.leaves() {
		if f.DominantType() == models.TypeNumber {
			numeric = append(numeric, f)
		}
	}

	return forEachField(ctx, CheckerOutlier, numeric, func(f *models.FieldInfo) (models.OutlierResult, bool) {
		var values []float64
		var ids []string
		for _, o := range in.observe(f.Path) {
			if o.value.Kind != models.KindNumber || math.IsNaN(o.value.Number) || math.IsInf(o.value.Number, 0) {
				continue
			}
			values = append(values, o.value.Number)
			ids = append(ids, o.docID)
		}
		if len(values) < opts.MinOutlierSampleSize {
			return models.OutlierResult{}, false
		}
		return detectOutliers(f.Path, values, ids, opts), true
	})
}

func detectOutliers(field string, values []float64, ids []string, opts config.AnalysisOptions) models.OutlierResult {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	r := models.OutlierResult{
		Field:  field,
		Count:  len(values),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: quantile(sorted, 0.5),
		Q1:     quantile(sorted, 0.25),
		Q3:     quantile(sorted, 0.75),
	}
	r.Mean, r.StdDev = meanStdDev(values)
	r.IQR = r.Q3 - r.Q1
	r.LowerFence = r.Q1 - opts.OutlierIQRMultiplier*r.IQR
	r.UpperFence = r.Q3 + opts.OutlierIQRMultiplier*r.IQR

	useZ := r.StdDev > 0
	useTukey := r.IQR > 0
	if !useZ {
		r.SkippedRules = append(r.SkippedRules, (&apperrors.ComputationDegenerate{Field: field, Rule: models.RuleZScore, Reason: "zero standard deviation"}).Error())
	}
	if !useTukey {
		r.SkippedRules = append(r.SkippedRules, (&apperrors.ComputationDegenerate{Field: field, Rule: models.RuleTukey, Reason: "zero interquartile range"}).Error())
	}

	var flagged []models.OutlierValue
	for i, v := range values {
		var z float64
		if useZ {
			z = (v - r.Mean) / r.StdDev
		}
		var rules []string
		if useZ && math.Abs(z) > opts.OutlierZScoreThreshold {
			rules = append(rules, models.RuleZScore)
			r.ZScoreOutliers++
		}
		if useTukey && (v < r.LowerFence || v > r.UpperFence) {
			rules = append(rules, models.RuleTukey)
			r.TukeyOutliers++
		}
		if len(rules) == 0 {
			continue
		}
		dir := models.DirectionHigh
		if v < r.Mean {
			dir = models.DirectionLow
		}
		flagged = append(flagged, models.OutlierValue{
			DocumentID: ids[i],
			Value:      v,
			ZScore:     z,
			Direction:  dir,
			Rules:      rules,
		})
	}

	r.OutlierCount = len(flagged)
	r.OutlierPercentage = ratio(r.OutlierCount, r.Count)
	switch {
	case r.OutlierCount == 0:
		r.Severity = models.SeverityInfo
	case r.OutlierPercentage >= opts.OutlierWarningPercentage:
		r.Severity = models.SeverityWarning
	default:
		r.Severity = models.SeverityInfo
	}

	// Most extreme first.
	sort.SliceStable(flagged, func(i, j int) bool {
		return math.Abs(flagged[i].Value-r.Median) > math.Abs(flagged[j].Value-r.Median)
	})
	if len(flagged) > opts.MaxSampleRecords {
		flagged = flagged[:opts.MaxSampleRecords]
	}
	r.Samples = flagged
	return r
}
