package circuitbreaker

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var ErrOpen = errors.New("circuit breaker is open")

// CircuitBreaker trips after maxFailures delivery failures inside the
// rolling window and stays open for the cooldown, after which one probe
// attempt is allowed.
type CircuitBreaker struct {
	maxFailures int
	window      time.Duration
	cooldown    time.Duration

	failures    []time.Time
	lastFailure time.Time
	state       State
	mu          sync.Mutex
}

func New(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return NewWithWindow(maxFailures, cooldown, 60*time.Second)
}

func NewWithWindow(maxFailures int, cooldown, window time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		window:      window,
		cooldown:    cooldown,
		state:       StateClosed,
		failures:    make([]time.Time, 0),
	}
}

// Execute runs attempt unless the breaker is open, in which case fallback
// runs instead (or ErrOpen is returned when there is none).
func (cb *CircuitBreaker) Execute(attempt func() error, fallback func() error) error {
	if !cb.allow() {
		if fallback != nil {
			return fallback()
		}
		return ErrOpen
	}

	err := attempt()
	cb.record(err)
	if err != nil && fallback != nil {
		return fallback()
	}
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) < cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.failures = cb.failures[:0]
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	if err != nil {
		cb.lastFailure = now
		cb.failures = append(cb.failures, now)
		cb.dropOldFailures(now)
		if len(cb.failures) >= cb.maxFailures || cb.state == StateHalfOpen {
			cb.state = StateOpen
		}
		return
	}

	cb.dropOldFailures(now)
	if cb.state == StateHalfOpen {
		cb.state = StateClosed
		cb.failures = cb.failures[:0]
	}
}

func (cb *CircuitBreaker) dropOldFailures(now time.Time) {
	cutoff := now.Add(-cb.window)
	kept := cb.failures[:0]
	for _, t := range cb.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	cb.failures = kept
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
