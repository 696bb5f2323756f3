package quality

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	libinjection "github.com/corazawaf/libinjection-go"
	"golang.org/x/text/unicode/norm"

	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/config"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/logging"
	"github.com/JoshLuedeman/cosmosdb-to-sql-migration-tool-sub002/pkg/models"
)

const (
	excerptLength     = 50
	maxHexCodesPerHit = 5
)

// Issue types in report order.
var encodingIssueOrder = []models.EncodingIssueType{
	models.EncodingInvalidUTF8,
	models.EncodingControlCharacter,
	models.EncodingInjectionPattern,
	models.EncodingSupplementaryPlane,
	models.EncodingNonNormalized,
	models.EncodingNonASCII,
}

var encodingRecommendations = map[models.EncodingIssueType]string{
	models.EncodingNonASCII:           "Use NVARCHAR and a Unicode collation for this column",
	models.EncodingSupplementaryPlane: "Use a UTF-16 or UTF-8 collation that supports supplementary characters (_SC or _UTF8)",
	models.EncodingControlCharacter:   "Strip or escape control characters before loading",
	models.EncodingInvalidUTF8:        "Repair or re-encode invalid byte sequences before loading",
	models.EncodingNonNormalized:      "Normalize values to NFC so equal strings compare equal",
	models.EncodingInjectionPattern:   "Review values that resemble SQL fragments and keep all loads parameterized",
}

// CheckEncoding scans string values for characters that need attention in a
// relational target. One result is emitted per (field, issue type) found.
func CheckEncoding(ctx context.Context, in *Input, opts config.AnalysisOptions) ([]models.EncodingResult, []models.AnalysisFailure, error) {
	perField, failures, err := forEachField(ctx, CheckerEncoding, in.leaves(), func(f *models.FieldInfo) ([]models.EncodingResult, bool) {
		return scanField(in, f.Path, opts)
	})
	if err != nil {
		return nil, nil, err
	}
	var out []models.EncodingResult
	for _, rs := range perField {
		out = append(out, rs...)
	}
	return out, failures, nil
}

type encodingHit struct {
	affected int
	samples  []models.EncodingSample
}

func scanField(in *Input, path string, opts config.AnalysisOptions) ([]models.EncodingResult, bool) {
	hits := make(map[models.EncodingIssueType]*encodingHit)
	scanned := 0

	for _, o := range in.observe(path) {
		if o.value.Kind != models.KindString {
			continue
		}
		scanned++
		found := classifyString(o.value.Str)
		for issue, codes := range found {
			h, ok := hits[issue]
			if !ok {
				h = &encodingHit{}
				hits[issue] = h
			}
			h.affected++
			if len(h.samples) < opts.MaxSampleRecords {
				h.samples = append(h.samples, models.EncodingSample{
					DocumentID: o.docID,
					Excerpt:    logging.TruncateString(strings.ToValidUTF8(o.value.Str, "\uFFFD"), excerptLength),
					HexCodes:   strings.Join(codes, " "),
				})
			}
		}
	}
	if len(hits) == 0 {
		return nil, false
	}

	var out []models.EncodingResult
	for _, issue := range encodingIssueOrder {
		h, ok := hits[issue]
		if !ok {
			continue
		}
		pct := ratio(h.affected, scanned)
		out = append(out, models.EncodingResult{
			Field:              path,
			IssueType:          issue,
			AffectedDocuments:  h.affected,
			AffectedPercentage: pct,
			Samples:            h.samples,
			Severity:           encodingSeverity(issue, pct, opts),
			Recommendation:     encodingRecommendations[issue],
		})
	}
	return out, true
}

func encodingSeverity(issue models.EncodingIssueType, pct float64, opts config.AnalysisOptions) models.Severity {
	switch issue {
	case models.EncodingInvalidUTF8:
		return models.SeverityCritical
	case models.EncodingControlCharacter, models.EncodingInjectionPattern:
		if pct >= opts.EncodingCriticalPercentage {
			return models.SeverityCritical
		}
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// classifyString returns every issue type present in s with the offending
// code points or bytes.
func classifyString(s string) map[models.EncodingIssueType][]string {
	found := make(map[models.EncodingIssueType][]string)
	add := func(issue models.EncodingIssueType, code string) {
		codes := found[issue]
		if len(codes) >= maxHexCodesPerHit {
			return
		}
		for _, c := range codes {
			if c == code {
				return
			}
		}
		found[issue] = append(codes, code)
	}

	valid := true
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			valid = false
			add(models.EncodingInvalidUTF8, fmt.Sprintf("0x%02X", s[i]))
		case r == utf8.RuneError:
			// A literal replacement character means an earlier lossy decode.
			add(models.EncodingInvalidUTF8, codePoint(r))
		case isControl(r):
			add(models.EncodingControlCharacter, codePoint(r))
		case r > 0xFFFF:
			add(models.EncodingSupplementaryPlane, codePoint(r))
			add(models.EncodingNonASCII, codePoint(r))
		case r > 0x7F:
			add(models.EncodingNonASCII, codePoint(r))
		}
		i += size
	}

	if valid && !norm.NFC.IsNormalString(s) {
		found[models.EncodingNonNormalized] = nil
	}
	if isSQLi, _ := libinjection.IsSQLi(s); isSQLi {
		found[models.EncodingInjectionPattern] = nil
	}
	return found
}

// isControl reports C0 and C1 control characters other than tab and newlines.
func isControl(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20 || r == 0x7F:
		return true
	case r >= 0x80 && r <= 0x9F:
		return true
	default:
		return false
	}
}

func codePoint(r rune) string {
	return fmt.Sprintf("U+%04X", r)
}
