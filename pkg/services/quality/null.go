package quality

import (
	"context"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

// CheckNulls counts explicit nulls and absent keys per field. Severity follows
// the explicit null rate; absent keys feed only the nullability decision.
func CheckNulls(ctx context.Context, in *Input, opts config.AnalysisOptions) ([]models.NullAnalysisResult, []models.AnalysisFailure, error) {
	total := len(in.Documents)
	if total == 0 {
		return nil, nil, nil
	}

	return forEachField(ctx, CheckerNull, in.fields(), func(f *models.FieldInfo) (models.NullAnalysisResult, bool) {
		r := models.NullAnalysisResult{Field: f.Path, TotalDocuments: total}
		for _, d := range in.Documents {
			v, ok := d.Root.Lookup(f.Path)
			switch {
			case !ok:
				r.MissingCount++
				r.SampleDocumentIDs = limitIDs(r.SampleDocumentIDs, d.ID, opts.MaxSampleRecords)
			case v.Kind == models.KindNull:
				r.NullCount++
				r.SampleDocumentIDs = limitIDs(r.SampleDocumentIDs, d.ID, opts.MaxSampleRecords)
			default:
				r.NonNullCount++
			}
		}

		r.NullPercentage = ratio(r.NullCount, total)
		r.MissingPercentage = ratio(r.MissingCount, total)
		r.Severity = nullSeverity(r.NullPercentage, opts)
		r.IsRecommendedRequired = opts.IsRequiredRate(r.NullCount+r.MissingCount, total)
		return r, true
	})
}

func nullSeverity(pct float64, opts config.AnalysisOptions) models.Severity {
	switch {
	case pct >= opts.NullThresholdCritical:
		return models.SeverityCritical
	case pct >= opts.NullThresholdWarning:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
