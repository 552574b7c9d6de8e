package queue

import (
	"sync"
	"time"

	"library-circulation/pkg/catalog"
)

// RetryNotification is a reminder that could not be delivered and is
// waiting for another attempt.
type RetryNotification struct {
	ID         string
	Patron     *catalog.Patron
	Message    string
	RetryAt    time.Time
	RetryCount int
	MaxRetries int
}

// Queue holds undelivered notifications until their retry time comes up.
// The reference time is always passed in by the caller.
type Queue struct {
	items []*RetryNotification
	mu    sync.Mutex
}

func NewQueue() *Queue {
	return &Queue{
		items: make([]*RetryNotification, 0),
	}
}

func (q *Queue) Enqueue(n *RetryNotification) {
	if n == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
}

// DequeueDue removes and returns the first notification whose retry time
// has arrived, or nil if none is due.
func (q *Queue) DequeueDue(now time.Time) *RetryNotification {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, n := range q.items {
		if !n.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return n
		}
	}
	return nil
}

// PeekDue returns the first due notification without removing it.
func (q *Queue) PeekDue(now time.Time) *RetryNotification {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, n := range q.items {
		if !n.RetryAt.After(now) {
			return n
		}
	}
	return nil
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) GetAll() []*RetryNotification {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]*RetryNotification, len(q.items))
	copy(result, q.items)
	return result
}
