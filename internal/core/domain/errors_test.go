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
		{"ErrInvalidDocument", ErrInvalidDocument},
		{"ErrInvalidFilter", ErrInvalidFilter},
		{"ErrNotCacheable", ErrNotCacheable},
		{"ErrReadOnly", ErrReadOnly},
		{"ErrSyncInProgress", ErrSyncInProgress},
		{"ErrRetriesExhausted", ErrRetriesExhausted},
		{"ErrUnsupportedBackend", ErrUnsupportedBackend},
		{"ErrUnauthorized", ErrUnauthorized},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("index doc-1: %w", ErrInvalidDocument)
	assert.True(t, errors.Is(wrapped, ErrInvalidDocument))
	assert.False(t, errors.Is(wrapped, ErrInvalidFilter))
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", fmt.Errorf("get: %w", ErrNotFound), true},
		{"unauthorized", ErrUnauthorized, true},
		{"rate limited", ErrRateLimited, false},
		{"generic", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}
}
