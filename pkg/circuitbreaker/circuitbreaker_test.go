package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(Settings{
		Name:        "test",
		MaxRequests: 3,
		Timeout:     timeout,
	})
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(time.Hour)
	boom := errors.New("publish failed")

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return boom })
		require.ErrorIs(t, err, boom)
	}

	attempted := false
	err := cb.Execute(func() error { attempted = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, attempted, "open breaker must not run the call")
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(time.Hour)
	boom := errors.New("publish failed")

	require.Error(t, cb.Execute(func() error { return boom }))
	require.Error(t, cb.Execute(func() error { return boom }))
	require.NoError(t, cb.Execute(func() error { return nil }))

	// The streak restarted, so two more failures stay under the trip point.
	require.Error(t, cb.Execute(func() error { return boom }))
	require.Error(t, cb.Execute(func() error { return boom }))

	err := cb.Execute(func() error { return nil })
	assert.NoError(t, err)
}

func TestHalfOpenTrialClosesOnSuccess(t *testing.T) {
	cb := newTestBreaker(time.Nanosecond)
	boom := errors.New("publish failed")

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(func() error { return boom }))
	}
	time.Sleep(time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))

	attempted := false
	require.NoError(t, cb.Execute(func() error { attempted = true; return nil }))
	assert.True(t, attempted)
}

func TestHalfOpenTrialReopensOnFailure(t *testing.T) {
	cb := newTestBreaker(50 * time.Millisecond)
	boom := errors.New("publish failed")

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(func() error { return boom }))
	}
	time.Sleep(60 * time.Millisecond)

	require.ErrorIs(t, cb.Execute(func() error { return boom }), boom)

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}
