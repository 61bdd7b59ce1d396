package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMaxFailures(2))

	assert.Equal(t, StateClosed, cb.State())

	err := cb.Execute(func() error { return errors.New("fail") })
	require.Error(t, err)
	assert.Equal(t, StateClosed, cb.State())

	err = cb.Execute(func() error { return errors.New("fail") })
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	err = cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMaxFailures(1), WithResetTimeout(10*time.Millisecond))

	_ = cb.Execute(func() error { return errors.New("fail") })
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_RecordSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMaxFailures(3))

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, 2, cb.Failures())

	cb.RecordSuccess()
	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}
