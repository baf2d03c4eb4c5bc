package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError_Error(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewRuntimeError("Start", "abc123", inner, true)

	assert.Contains(t, err.Error(), "Start")
	assert.Contains(t, err.Error(), "abc123")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRuntimeError_Unwrap(t *testing.T) {
	inner := ErrNotFound
	err := NewRuntimeError("Inspect", "abc123", inner, false)

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRuntimeError_Retryable(t *testing.T) {
	err := NewRuntimeError("Stop", "abc123", errors.New("timeout"), true)
	assert.True(t, err.Retryable)

	err2 := NewRuntimeError("Inspect", "abc123", ErrNotFound, false)
	assert.False(t, err2.Retryable)
}
