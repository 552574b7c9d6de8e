package circuitbreaker

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var errDelivery = errors.New("delivery failed")

func failing() error { return errDelivery }
func succeeding() error { return nil }

func TestStaysClosedOnSuccess(t *testing.T) {
	cb := New(3, time.Second)

	for i := 0; i < 10; i++ {
		assert.NoError(t, cb.Execute(succeeding, nil))
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestOpensAfterMaxFailures(t *testing.T) {
	cb := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(failing, nil))
	}
	assert.Equal(t, StateOpen, cb.GetState())

	// Open breaker short-circuits without running the attempt.
	ran := false
	err := cb.Execute(func() error {
		ran = true
		return nil
	}, nil)
	assert.Equal(t, ErrOpen, errors.Cause(err))
	assert.False(t, ran)
}

func TestFallbackRunsWhenOpen(t *testing.T) {
	cb := New(1, time.Minute)
	assert.Error(t, cb.Execute(failing, nil))

	fallbackRan := false
	err := cb.Execute(succeeding, func() error {
		fallbackRan = true
		return ErrOpen
	})
	assert.True(t, fallbackRan)
	assert.Equal(t, ErrOpen, errors.Cause(err))
}

func TestFallbackRunsOnFailedAttempt(t *testing.T) {
	cb := New(10, time.Minute)

	fallbackRan := false
	err := cb.Execute(failing, func() error {
		fallbackRan = true
		return errDelivery
	})
	assert.True(t, fallbackRan)
	assert.Error(t, err)
}

func TestHalfOpenProbeAfterCooldown(t *testing.T) {
	cb := New(1, 10*time.Millisecond)
	assert.Error(t, cb.Execute(failing, nil))
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	// Probe succeeds and the breaker closes again.
	assert.NoError(t, cb.Execute(succeeding, nil))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenProbeFailureReopens(t *testing.T) {
	cb := New(2, 10*time.Millisecond)
	assert.Error(t, cb.Execute(failing, nil))
	assert.Error(t, cb.Execute(failing, nil))
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	assert.Error(t, cb.Execute(failing, nil))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestFailuresOutsideWindowDoNotTrip(t *testing.T) {
	cb := NewWithWindow(2, time.Minute, 20*time.Millisecond)

	assert.Error(t, cb.Execute(failing, nil))
	time.Sleep(30 * time.Millisecond)
	assert.Error(t, cb.Execute(failing, nil))

	assert.Equal(t, StateClosed, cb.GetState())
}
