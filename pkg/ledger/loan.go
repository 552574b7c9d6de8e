package ledger

import (
	"time"

	"github.com/google/uuid"

	"library-circulation/pkg/catalog"
)

// Loan records one item borrowed by one patron. The ledger never deletes
// loans; a returned loan stays as a historical record. Item may be nil for
// rows created before items were tracked per loan (legacy data).
type Loan struct {
	ID         string
	Item       *catalog.Item
	Patron     *catalog.Patron
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
}

// NewLoan creates an active loan due after the item's category loan period.
func NewLoan(item *catalog.Item, patron *catalog.Patron, borrowDate time.Time) *Loan {
	return &Loan{
		ID:         uuid.New().String(),
		Item:       item,
		Patron:     patron,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.AddDate(0, 0, item.Category.LoanPeriodDays()),
	}
}

func (l *Loan) IsReturned() bool {
	return l.ReturnDate != nil
}

// IsOverdue reports whether the loan is past due and unreturned as of the
// given date. The due date itself is not overdue.
func (l *Loan) IsOverdue(asOf time.Time) bool {
	return l.ReturnDate == nil && DaysBetween(l.DueDate, asOf) > 0
}

// DaysOverdue returns how many days past due the loan is, 0 if not overdue.
func (l *Loan) DaysOverdue(asOf time.Time) int {
	if !l.IsOverdue(asOf) {
		return 0
	}
	return DaysBetween(l.DueDate, asOf)
}

// DaysBetween counts whole calendar days from one date to another,
// ignoring the time of day.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
