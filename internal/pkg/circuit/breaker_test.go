package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerLifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("binance", 2, 10*time.Second)
	cb.SetClock(func() time.Time { return now })
	boom := errors.New("boom")

	require.ErrorIs(t, cb.Do(func() error { return boom }), boom)
	assert.Equal(t, StateClosed, cb.State())
	require.ErrorIs(t, cb.Do(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Do(func() error { called = true; return nil })
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.False(t, called)

	now = now.Add(11 * time.Second)
	require.ErrorIs(t, cb.Do(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.State(), "failed trial call reopens")

	now = now.Add(11 * time.Second)
	require.NoError(t, cb.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("x", 2, time.Second)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestStateChangeHandler(t *testing.T) {
	cb := NewCircuitBreaker("x", 1, time.Second)
	changes := make(chan State, 1)
	cb.SetStateChangeHandler(func(name string, from, to State) {
		assert.Equal(t, "x", name)
		changes <- to
	})
	cb.RecordFailure()
	select {
	case to := <-changes:
		assert.Equal(t, StateOpen, to)
	case <-time.After(time.Second):
		t.Fatal("no state change reported")
	}
	assert.Equal(t, "HALF-OPEN", StateHalfOpen.String())
}

func TestHalfOpenAdmitsSingleProbe(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("x", 1, time.Second)
	cb.SetClock(func() time.Time { return now })
	cb.SetStateChangeHandler(func(string, State, State) {})
	cb.RecordFailure()

	now = now.Add(2 * time.Second)
	assert.True(t, cb.Allow(), "first caller gets the trial call")
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.False(t, cb.Allow(), "second caller waits for the trial call")
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCancelledCallsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker("x", 1, time.Minute)
	err := cb.Do(func() error { return context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	err = cb.Do(func() error { return context.DeadlineExceeded })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateClosed, cb.State())
}
