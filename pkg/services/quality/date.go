package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/services/inference"
)

// Rejection reasons recorded on date samples.
const (
	reasonUnparseable = "unparseable"
	reasonTooOld      = "before minimum reasonable date"
	reasonFuture      = "after maximum reasonable date"
)

// CheckDates validates fields that mostly hold timestamps. Values that cannot
// be parsed, or that fall outside the reasonable range, are counted.
func CheckDates(ctx context.Context, in *Input, opts config.AnalysisOptions) ([]models.DateValidationResult, []models.AnalysisFailure, error) {
	minDate, err := opts.MinDate()
	if err != nil {
		return nil, nil, fmt.Errorf("parse min reasonable date: %w", err)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	maxDate := opts.MaxDate(now)

	var dateFields []*models.FieldInfo
	for _, f := range in.leaves() {
		if isDateField(f, opts) {
			dateFields = append(dateFields, f)
		}
	}

	return forEachField(ctx, CheckerDate, dateFields, func(f *models.FieldInfo) (models.DateValidationResult, bool) {
		r := models.DateValidationResult{Field: f.Path}
		for _, o := range in.observe(f.Path) {
			if o.value.Kind == models.KindNull {
				continue
			}
			r.TotalValues++

			t, ok := asTime(o.value)
			reason := ""
			switch {
			case !ok:
				r.InvalidDateCount++
				reason = reasonUnparseable
			case t.Before(minDate):
				r.TooOldCount++
				reason = reasonTooOld
			case t.After(maxDate):
				r.FutureCount++
				reason = reasonFuture
			default:
				r.ValidCount++
				if r.Earliest == nil || t.Before(*r.Earliest) {
					e := t
					r.Earliest = &e
				}
				if r.Latest == nil || t.After(*r.Latest) {
					l := t
					r.Latest = &l
				}
			}
			if reason != "" && len(r.Samples) < opts.MaxSampleRecords {
				r.Samples = append(r.Samples, models.DateSample{
					DocumentID: o.docID,
					Value:      logging.TruncateString(o.value.Display(), maxSampleValueLength),
					Reason:     reason,
				})
			}
		}
		if r.TotalValues == 0 {
			return r, false
		}

		bad := r.InvalidDateCount + r.TooOldCount + r.FutureCount
		r.InvalidPercentage = ratio(bad, r.TotalValues)
		switch {
		case bad == 0:
			r.Severity = models.SeverityInfo
		case r.InvalidPercentage >= opts.DateInvalidCriticalPercentage:
			r.Severity = models.SeverityCritical
		default:
			r.Severity = models.SeverityWarning
		}
		return r, true
	})
}

// isDateField reports whether enough non-null observations are date-tagged.
func isDateField(f *models.FieldInfo, opts config.AnalysisOptions) bool {
	nonNull := 0
	for tag, c := range f.TypeCounts {
		if tag != models.TypeNull {
			nonNull += c
		}
	}
	return nonNull > 0 && ratio(f.TypeCounts[models.TypeDate], nonNull) >= opts.DateDetectionRatio
}

func asTime(v models.Value) (time.Time, bool) {
	switch v.Kind {
	case models.KindDate:
		return v.Time, true
	case models.KindString:
		return inference.ParseTimestamp(v.Str)
	case models.KindNumber:
		return inference.ParseEpoch(v.Number)
	default:
		return time.Time{}, false
	}
}
