package notify

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"library-circulation/pkg/catalog"
	"library-circulation/pkg/overdue"
)

// Dispatcher fans overdue reminders out to the attached channels. It
// decides who gets notified; the channels decide how.
type Dispatcher struct {
	detector  *overdue.Detector
	observers []Observer
}

// NewDispatcher fails fast without a detector: a dispatcher that cannot
// tell who is overdue is a wiring bug, not a runtime condition.
func NewDispatcher(detector *overdue.Detector, observers ...Observer) (*Dispatcher, error) {
	if detector == nil {
		return nil, errors.New("notification dispatcher requires an overdue detector")
	}
	d := &Dispatcher{detector: detector}
	for _, o := range observers {
		d.Attach(o)
	}
	return d, nil
}

// Attach registers a channel. Attaching nil or an already-attached
// channel is a no-op.
func (d *Dispatcher) Attach(o Observer) {
	if o == nil {
		return
	}
	for _, existing := range d.observers {
		if existing == o {
			return
		}
	}
	d.observers = append(d.observers, o)
}

// Detach removes a channel; detaching one that is absent is a no-op.
func (d *Dispatcher) Detach(o Observer) {
	for i, existing := range d.observers {
		if existing == o {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}

func (d *Dispatcher) Observers() []Observer {
	result := make([]Observer, len(d.observers))
	copy(result, d.observers)
	return result
}

// NotifyObservers delivers the message on every attached channel. One
// channel failing, or even panicking, must not stop delivery on the rest.
func (d *Dispatcher) NotifyObservers(patron *catalog.Patron, message string) {
	for _, o := range d.observers {
		notifySafely(o, patron, message)
	}
}

func notifySafely(o Observer, patron *catalog.Patron, message string) (delivered bool) {
	defer func() {
		if recover() != nil {
			delivered = false
		}
	}()
	return o.Notify(patron, message)
}

// SendReminderToPatron sends one overdue reminder to the patron as of the
// given date. Returns false when the patron has nothing overdue or no
// email address on file.
func (d *Dispatcher) SendReminderToPatron(patron *catalog.Patron, asOf time.Time) bool {
	if patron == nil || asOf.IsZero() {
		return false
	}
	count := len(d.detector.OverdueLoansForPatron(patron, asOf))
	if count == 0 {
		return false
	}
	if patron.Email == "" {
		return false
	}
	d.NotifyObservers(patron, reminderMessage(count))
	return true
}

// SendOverdueReminders sends at most one reminder per patron holding
// overdue loans as of the date, and returns how many were sent.
func (d *Dispatcher) SendOverdueReminders(asOf time.Time) int {
	if asOf.IsZero() {
		return 0
	}

	seen := make(map[string]bool)
	patrons := make([]*catalog.Patron, 0)
	for _, loan := range d.detector.OverdueLoans(asOf) {
		if loan.Patron == nil || seen[loan.Patron.ID] {
			continue
		}
		seen[loan.Patron.ID] = true
		patrons = append(patrons, loan.Patron)
	}

	sent := 0
	for _, patron := range patrons {
		if d.SendReminderToPatron(patron, asOf) {
			sent++
		}
	}
	return sent
}

func reminderMessage(count int) string {
	if count == 1 {
		return "You have 1 overdue item."
	}
	return fmt.Sprintf("You have %d overdue item(s).", count)
}
