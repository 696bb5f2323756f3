package inference

import (
	"math"
	"regexp"
	"time"
)

// Formats tried when parsing a timestamp string, most common first.
var timestampFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

// Shapes that mark a string as a timestamp candidate. Shape matching does not
// validate the calendar: "2023-13-45" is a date-shaped string that fails to parse.
var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d{1,9})?(?:Z|[+-]\d{2}:?\d{2})?$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d{1,9})?$`),
	regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}$`),
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}(?: \d{2}:\d{2}:\d{2})?$`),
}

// LooksLikeTimestamp reports whether s has the shape of a timestamp.
func LooksLikeTimestamp(s string) bool {
	if len(s) < 10 || len(s) > 35 {
		return false
	}
	for _, pattern := range timestampPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// ParseTimestamp parses s with every supported format.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Epoch values at or above this magnitude are milliseconds, not seconds.
// 1e11 seconds is year 5138; 1e11 milliseconds is 1973.
const epochMillisThreshold = 1e11

// ParseEpoch interprets n as Unix seconds or milliseconds by magnitude.
func ParseEpoch(n float64) (time.Time, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return time.Time{}, false
	}
	if math.Abs(n) >= epochMillisThreshold {
		ms := int64(n)
		return time.UnixMilli(ms).UTC(), true
	}
	sec, frac := math.Modf(n)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}
