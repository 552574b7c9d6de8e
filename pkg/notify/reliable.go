package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"library-circulation/pkg/catalog"
	"library-circulation/pkg/circuitbreaker"
	"library-circulation/pkg/queue"
)

// ReliableObserver wraps a channel with a circuit breaker and a retry
// queue. A failed delivery is parked in the queue; once the breaker is
// open, deliveries skip the channel and go straight to the queue. The
// shell decides when FlushRetries runs.
type ReliableObserver struct {
	inner      Observer
	breaker    *circuitbreaker.CircuitBreaker
	retries    *queue.Queue
	retryDelay time.Duration
	maxRetries int
}

func NewReliableObserver(inner Observer, breaker *circuitbreaker.CircuitBreaker, retries *queue.Queue, retryDelay time.Duration, maxRetries int) (*ReliableObserver, error) {
	if inner == nil || breaker == nil || retries == nil {
		return nil, errors.New("reliable observer requires a channel, a breaker and a queue")
	}
	return &ReliableObserver{
		inner:      inner,
		breaker:    breaker,
		retries:    retries,
		retryDelay: retryDelay,
		maxRetries: maxRetries,
	}, nil
}

func (o *ReliableObserver) Notify(patron *catalog.Patron, message string) bool {
	err := o.breaker.Execute(
		func() error {
			if notifySafely(o.inner, patron, message) {
				return nil
			}
			return errors.Errorf("%s channel delivery failed", o.inner.Type())
		},
		func() error {
			o.enqueue(patron, message, 0)
			return circuitbreaker.ErrOpen
		},
	)
	return err == nil
}

func (o *ReliableObserver) Type() string {
	return o.inner.Type()
}

// Pending returns how many deliveries are parked in the retry queue.
func (o *ReliableObserver) Pending() int {
	return o.retries.Size()
}

// FlushRetries re-attempts every delivery due as of now and returns how
// many went through. Attempts that fail again are re-queued until their
// retry budget runs out.
func (o *ReliableObserver) FlushRetries(now time.Time) int {
	delivered := 0
	for {
		n := o.retries.DequeueDue(now)
		if n == nil {
			return delivered
		}
		if notifySafely(o.inner, n.Patron, n.Message) {
			delivered++
			continue
		}
		if n.RetryCount+1 < n.MaxRetries {
			n.RetryCount++
			n.RetryAt = now.Add(o.retryDelay)
			o.retries.Enqueue(n)
		}
	}
}

func (o *ReliableObserver) enqueue(patron *catalog.Patron, message string, retryCount int) {
	o.retries.Enqueue(&queue.RetryNotification{
		ID:         uuid.New().String(),
		Patron:     patron,
		Message:    message,
		RetryAt:    time.Now().Add(o.retryDelay),
		RetryCount: retryCount,
		MaxRetries: o.maxRetries,
	})
}
