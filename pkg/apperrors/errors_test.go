package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError_IsFatal(t *testing.T) {
	err := fmt.Errorf("load: %w", &ConfigurationError{Field: "sample_size", Reason: "must be positive"})

	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "sample_size")

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "must be positive", cfgErr.Reason)
}

func TestInputError_Unwrap(t *testing.T) {
	err := &InputError{Container: "orders", Err: ErrEmptySample}

	assert.ErrorIs(t, err, ErrEmptySample)
	assert.False(t, IsFatal(err))
	assert.Equal(t, "container orders: empty sample", err.Error())
}

func TestNonFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"partial", &PartialAnalysisWarning{Container: "c", Skipped: 20, Total: 100, Threshold: 0.1}},
		{"degenerate", &ComputationDegenerate{Field: "price", Rule: "zscore", Reason: "zero variance"}},
		{"cancelled", context.Canceled},
		{"not found", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, IsFatal(tt.err))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
