package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrModelUnavailable", ErrModelUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrEmptyIndex", ErrEmptyIndex},
		{"ErrCorruptSnapshot", ErrCorruptSnapshot},
		{"ErrUnexpectedOutput", ErrUnexpectedOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrors_Distinct tests that no two sentinels match each other
func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrUnsupportedType, ErrStoreUnavailable,
		ErrModelUnavailable, ErrEmbeddingUnavailable, ErrVectorIndexUnavailable,
		ErrDimensionMismatch, ErrEmptyIndex, ErrCorruptSnapshot, ErrUnexpectedOutput,
	}
	for i, a := range all {
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
}

// TestErrors_Wrapped tests that wrapped sentinels are still matched
func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("build index: %w: document 7 has 3 dimensions", ErrDimensionMismatch)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.NotErrorIs(t, err, ErrEmptyIndex)
}
