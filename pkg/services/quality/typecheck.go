package quality

import (
	"context"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/inference"
)

const maxSampleValueLength = 100

// CheckTypes measures how consistently each field holds one type. Nulls are
// not a type conflict and are left to the null checker.
func CheckTypes(ctx context.Context, in *Input, opts config.AnalysisOptions) ([]models.TypeConsistencyResult, []models.AnalysisFailure, error) {
	return forEachField(ctx, CheckerType, in.fields(), func(f *models.FieldInfo) (models.TypeConsistencyResult, bool) {
		obs := in.observe(f.Path)
		dist := make(map[models.TypeTag]int)
		tags := make([]models.TypeTag, len(obs))
		nonNull := 0
		for i, o := range obs {
			tag := inference.TagOf(o.value)
			tags[i] = tag
			if tag == models.TypeNull {
				continue
			}
			dist[tag]++
			nonNull++
		}
		if nonNull == 0 {
			return models.TypeConsistencyResult{}, false
		}

		dominant := dominantTag(dist)
		r := models.TypeConsistencyResult{
			Field:            f.Path,
			TypeDistribution: dist,
			DominantType:     dominant,
			DominantShare:    ratio(dist[dominant], nonNull),
			MismatchCount:    nonNull - dist[dominant],
			RecommendedType:  inference.RecommendType(f, opts),
		}
		r.MismatchRatio = ratio(r.MismatchCount, nonNull)
		r.IsConsistent = r.DominantShare >= opts.TypeDominanceThreshold

		for i, o := range obs {
			if len(r.Samples) >= opts.MaxSampleRecords {
				break
			}
			if tags[i] == models.TypeNull || tags[i] == dominant {
				continue
			}
			r.Samples = append(r.Samples, models.TypeMismatchSample{
				DocumentID:   o.docID,
				ExpectedType: dominant,
				ActualType:   tags[i],
				Value:        logging.TruncateString(o.value.Display(), maxSampleValueLength),
			})
		}

		switch {
		case r.IsConsistent:
			r.Severity = models.SeverityInfo
		case r.MismatchRatio >= opts.TypeMismatchCriticalRatio:
			r.Severity = models.SeverityCritical
		default:
			r.Severity = models.SeverityWarning
		}
		return r, true
	})
}

// dominantTag picks the most frequent tag; ties go to the smallest name.
func dominantTag(dist map[models.TypeTag]int) models.TypeTag {
	var best models.TypeTag
	bestCount := -1
	for tag, c := range dist {
		if c > bestCount || (c == bestCount && tag < best) {
			best, bestCount = tag, c
		}
	}
	return best
}
