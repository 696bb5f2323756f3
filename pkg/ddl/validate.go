package ddl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

var (
	// ErrUnsafeIdentifier indicates a name that cannot be emitted into DDL.
	ErrUnsafeIdentifier = errors.New("unsafe SQL identifier")

	// ErrMultipleStatements indicates a generated statement that would
	// execute as more than one.
	ErrMultipleStatements = errors.New("generated DDL contains more than one statement")
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateIdentifier accepts normalized lower snake_case names within the
// dialect's length limit that libinjection does not fingerprint as SQL.
func ValidateIdentifier(name string, d Dialect) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q is not a normalized identifier", ErrUnsafeIdentifier, name)
	}
	if len(name) > d.MaxIdentifierLength() {
		return fmt.Errorf("%w: %q is longer than %d characters for %s", ErrUnsafeIdentifier, name, d.MaxIdentifierLength(), d)
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(name); isSQLi {
		return fmt.Errorf("%w: %q matches injection fingerprint %s", ErrUnsafeIdentifier, name, fingerprint)
	}
	return nil
}

// ValidateStatement rejects a statement carrying a semicolon outside
// string literals and quoted identifiers.
func ValidateStatement(stmt string) error {
	if hasSemicolonOutsideQuotes(stmt) {
		return ErrMultipleStatements
	}
	return nil
}

func hasSemicolonOutsideQuotes(stmt string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBracket
	)

	state := stateNormal
	for _, char := range stmt {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '[':
				state = stateBracket
			}
		case stateSingleQuote:
			// a doubled quote leaves and re-enters the literal
			if char == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' {
				state = stateNormal
			}
		case stateBracket:
			if char == ']' {
				state = stateNormal
			}
		}
	}
	return false
}

func quoteList(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.Quote(n)
	}
	return strings.Join(quoted, ", ")
}
