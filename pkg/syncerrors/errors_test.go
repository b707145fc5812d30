package syncerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input")
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "validation: bad input", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrorTypeConnection, "query failed")
	assert.Equal(t, "connection: query failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}

func TestWrapPreservesOriginalStack(t *testing.T) {
	inner := New(ErrorTypeQuery, "statement failed")
	outer := Wrap(inner, ErrorTypeConnection, "batch failed")
	assert.Equal(t, inner.Stack, outer.Stack)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeQuery, "upsert failed").
		WithDetail("table", "notion_pages").
		WithDetail("rows", 42)
	assert.Equal(t, "notion_pages", err.Details["table"])
	assert.Equal(t, 42, err.Details["rows"])
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrorTypeRateLimit, "throttled")))
	assert.True(t, IsRetryable(New(ErrorTypeTimeout, "slow")))
	assert.True(t, IsRetryable(New(ErrorTypeConnection, "down")))
	assert.True(t, IsRetryable(New(ErrorTypeSchema, "stale cache")))

	assert.False(t, IsRetryable(New(ErrorTypeConfig, "missing key")))
	assert.False(t, IsRetryable(New(ErrorTypeValidation, "bad payload")))
	assert.False(t, IsRetryable(New(ErrorTypeSourceUnavailable, "gave up")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeRateLimit, "throttled")
	assert.True(t, IsType(err, ErrorTypeRateLimit))
	assert.False(t, IsType(err, ErrorTypeTimeout))

	// Works through fmt wrapping as well
	wrapped := fmt.Errorf("run failed: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeRateLimit))

	assert.False(t, IsType(errors.New("plain"), ErrorTypeInternal))
}

func TestErrorsAsThroughChain(t *testing.T) {
	root := New(ErrorTypeConnection, "down")
	chained := fmt.Errorf("outer: %w", Wrap(root, ErrorTypeQuery, "batch failed"))

	var e *Error
	require.True(t, errors.As(chained, &e))
	assert.Equal(t, ErrorTypeQuery, e.Type)
	assert.False(t, IsRetryable(chained), "outermost type drives retryability")
}
