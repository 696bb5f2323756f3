package mapping

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

const fallbackIdentifier = "col"

// NormalizeIdentifier turns a source field or container name into a safe SQL
// identifier: snake_case, lower-case, only [a-z0-9_], never starting with a
// digit, and at most maxLen bytes.
func NormalizeIdentifier(name string, maxLen int) string {
	runes := []rune(name)
	var b strings.Builder
	pendingSep := false
	for i, r := range runes {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if unicode.IsUpper(r) && i > 0 && b.Len() > 0 && camelBoundary(runes, i) {
				pendingSep = true
			}
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		default:
			// Underscores and every other character collapse into one separator.
			pendingSep = true
		}
	}

	s := b.String()
	if s == "" {
		s = fallbackIdentifier
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "c_" + s
	}
	return truncateIdentifier(s, maxLen)
}

// camelBoundary reports whether the upper-case rune at i starts a new word:
// after a lower-case letter or digit, or as the last capital of an acronym
// followed by a lower-case letter.
func camelBoundary(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	if unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
		return true
	}
	return false
}

func truncateIdentifier(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return strings.TrimRight(s[:maxLen], "_")
}

// ChildTableName names the table for a nested field. Array fields take the
// singular form: orders + lineItems -> orders_line_item.
func ChildTableName(parent, field string, isArray bool, maxLen int) string {
	name := NormalizeIdentifier(field, maxLen)
	if isArray {
		name = singularize(name)
	}
	return truncateIdentifier(parent+"_"+name, maxLen)
}

// singularize singularizes the last word of a snake_case identifier.
func singularize(name string) string {
	idx := strings.LastIndexByte(name, '_')
	last := name[idx+1:]
	single := inflection.Singular(last)
	if single == "" {
		return name
	}
	return name[:idx+1] + single
}

// namer hands out identifiers unique within one scope, suffixing _2, _3 on
// collision.
type namer struct {
	used   map[string]bool
	maxLen int
}

func newNamer(maxLen int) *namer {
	return &namer{used: make(map[string]bool), maxLen: maxLen}
}

// reserve marks name as taken without suffixing.
func (n *namer) reserve(name string) {
	n.used[name] = true
}

func (n *namer) unique(base string) string {
	name := base
	for i := 2; n.used[name]; i++ {
		suffix := fmt.Sprintf("_%d", i)
		name = truncateIdentifier(base, n.maxLen-len(suffix)) + suffix
	}
	n.used[name] = true
	return name
}

// constraintName builds a pk_/fk_/uq_/ix_ style name.
func constraintName(prefix string, maxLen int, parts ...string) string {
	return truncateIdentifier(prefix+"_"+strings.Join(parts, "_"), maxLen)
}
