package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrEmptySample        = errors.New("empty sample")
	ErrInvalidDocument    = errors.New("invalid document")
	ErrUnsupportedDialect = errors.New("unsupported sql dialect")
	ErrSourceUnavailable  = errors.New("sample source unavailable")
)

// ConfigurationError rejects invalid options before any analysis starts.
// It is the only error that aborts a whole run.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfig }

// InputError is a malformed or empty sample for one container.
type InputError struct {
	Container string
	Err       error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("container %s: %v", e.Container, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// PartialAnalysisWarning marks a container whose inference skipped more
// documents than the configured threshold.
type PartialAnalysisWarning struct {
	Container string
	Skipped   int
	Total     int
	Threshold float64
}

func (e *PartialAnalysisWarning) Error() string {
	return fmt.Sprintf("container %s: skipped %d of %d documents (threshold %.2f)",
		e.Container, e.Skipped, e.Total, e.Threshold)
}

// ComputationDegenerate marks a statistical rule skipped for a field.
type ComputationDegenerate struct {
	Field  string
	Rule   string
	Reason string
}

func (e *ComputationDegenerate) Error() string {
	return fmt.Sprintf("field %s: %s rule skipped: %s", e.Field, e.Rule, e.Reason)
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
