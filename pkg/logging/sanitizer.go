package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxStatementLogLength is the maximum length of a SQL statement to log
	MaxStatementLogLength = 120
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Cosmos DB style AccountKey=xxx; the key is base64 and may contain '='
	accountKeyPattern = regexp.MustCompile(`(?i)(accountkey)=[^;\s]+`)

	// api_key=xxx, apikey=xxx, application_key=xxx
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|app(?:lication)?[_-]?key)=[A-Za-z0-9-_]{16,}`)

	// user:pass@host in URIs (mongodb://, postgres://, sqlserver://)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@]+@[^/\s?]+`)
)

// SanitizeConnectionString removes credentials from a connection string or URI.
// Use this before logging any source, store or target connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = accountKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError removes credentials that drivers sometimes echo in errors.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := SanitizeConnectionString(err.Error())
	return apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}

// SanitizeStatement truncates a DDL statement for logging.
func SanitizeStatement(stmt string) string {
	return TruncateString(passwordPattern.ReplaceAllString(stmt, "${1}="+RedactedText), MaxStatementLogLength)
}

// TruncateString truncates s to at most maxLen bytes on a rune boundary
// and adds an ellipsis if anything was cut.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
