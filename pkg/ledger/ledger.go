package ledger

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"library-circulation/pkg/catalog"
)

// Borrow eligibility failures. These are business-rule violations, not bad
// input: callers are expected to surface them as rejections.
var (
	ErrUnpaidFines  = errors.New("cannot borrow: patron has unpaid fines")
	ErrOverdueItems = errors.New("cannot borrow: patron has overdue items")
)

// Ledger is the single source of truth for loans and fines. Loans are
// append-only; fines are appended and mutated by payments. Items and
// patrons are referenced, never owned: the caller supplies and persists
// them. Access is single-writer; callers needing concurrency serialize
// around the ledger themselves.
type Ledger struct {
	loans []*Loan
	fines []*Fine
}

func New() *Ledger {
	return &Ledger{}
}

// Borrow checks eligibility and creates a loan dated at the given day.
//
// Nil patron/item and zero dates are a permissive no-op returning no loan
// and no error, as is an unavailable item. Unpaid fines and overdue items
// are hard failures, fines taking precedence when both apply.
func (ld *Ledger) Borrow(patron *catalog.Patron, item *catalog.Item, date time.Time) (*Loan, error) {
	if patron == nil || item == nil || date.IsZero() {
		return nil, nil
	}
	if !item.IsAvailable() {
		return nil, nil
	}
	if ld.HasUnpaidFines(patron) {
		return nil, errors.Wrapf(ErrUnpaidFines, "patron %s", patron.ID)
	}
	if ld.HasOverdueLoans(patron, date) {
		return nil, errors.Wrapf(ErrOverdueItems, "patron %s", patron.ID)
	}

	if item.Category == catalog.CategoryBook {
		if err := item.DecrementQuantity(); err != nil {
			return nil, err
		}
		if item.Quantity == 0 {
			item.Available = false
		}
	} else {
		// Single-copy policy for CDs and journals.
		item.Available = false
	}

	loan := NewLoan(item, patron, date)
	ld.loans = append(ld.loans, loan)
	return loan, nil
}

// Return marks the loan returned and puts the item back in circulation.
// A nil loan or zero date is a no-op. Returning an already-returned loan
// overwrites the return date; this is kept as a data-entry correction
// mechanism.
func (ld *Ledger) Return(loan *Loan, date time.Time) {
	if loan == nil || date.IsZero() {
		return
	}
	d := date
	loan.ReturnDate = &d

	item := loan.Item
	if item == nil {
		return
	}
	if item.Category == catalog.CategoryBook {
		item.IncrementQuantity()
		if item.Quantity > 0 {
			item.Available = true
		}
	} else {
		item.Available = true
	}
}

// PayFine applies a payment to the patron's unpaid fines, oldest first,
// discharging each in full before moving on. Overpayment is absorbed.
// Returns false for nil patron, non-positive amounts, or no outstanding
// fines.
func (ld *Ledger) PayFine(patron *catalog.Patron, amount decimal.Decimal) bool {
	if patron == nil || amount.Sign() <= 0 {
		return false
	}
	unpaid := ld.UnpaidFines(patron)
	if len(unpaid) == 0 {
		return false
	}

	remaining := amount
	for _, fine := range unpaid {
		if remaining.Sign() <= 0 {
			break
		}
		payment := remaining
		if payment.GreaterThan(fine.Amount) {
			payment = fine.Amount
		}
		remaining = remaining.Sub(payment)
		if err := fine.Pay(payment); err != nil {
			return false
		}
	}
	return true
}

// RestoreLoan appends a previously persisted loan without eligibility
// checks or item mutation. Only for rehydrating the ledger on startup.
func (ld *Ledger) RestoreLoan(loan *Loan) {
	if loan != nil {
		ld.loans = append(ld.loans, loan)
	}
}

// AddFine appends a fine to the ledger. Nil fines are ignored.
func (ld *Ledger) AddFine(fine *Fine) {
	if fine != nil {
		ld.fines = append(ld.fines, fine)
	}
}

// ActiveLoans returns the patron's unreturned loans.
func (ld *Ledger) ActiveLoans(patron *catalog.Patron) []*Loan {
	result := make([]*Loan, 0)
	if patron == nil {
		return result
	}
	for _, loan := range ld.loans {
		if loan.Patron != nil && loan.Patron.ID == patron.ID && !loan.IsReturned() {
			result = append(result, loan)
		}
	}
	return result
}

// AllLoans returns every loan for the patron, returned or not.
func (ld *Ledger) AllLoans(patron *catalog.Patron) []*Loan {
	result := make([]*Loan, 0)
	if patron == nil {
		return result
	}
	for _, loan := range ld.loans {
		if loan.Patron != nil && loan.Patron.ID == patron.ID {
			result = append(result, loan)
		}
	}
	return result
}

// UnpaidFines returns the patron's outstanding fines in insertion order.
// The order matters: PayFine discharges them oldest first.
func (ld *Ledger) UnpaidFines(patron *catalog.Patron) []*Fine {
	result := make([]*Fine, 0)
	if patron == nil {
		return result
	}
	for _, fine := range ld.fines {
		if fine.Patron != nil && fine.Patron.ID == patron.ID && !fine.Paid {
			result = append(result, fine)
		}
	}
	return result
}

func (ld *Ledger) HasUnpaidFines(patron *catalog.Patron) bool {
	return len(ld.UnpaidFines(patron)) > 0
}

func (ld *Ledger) HasOverdueLoans(patron *catalog.Patron, asOf time.Time) bool {
	if patron == nil {
		return false
	}
	for _, loan := range ld.loans {
		if loan.Patron != nil && loan.Patron.ID == patron.ID && loan.IsOverdue(asOf) {
			return true
		}
	}
	return false
}

// CanBorrow reports eligibility without attempting a borrow.
func (ld *Ledger) CanBorrow(patron *catalog.Patron, asOf time.Time) bool {
	if patron == nil {
		return false
	}
	return !ld.HasUnpaidFines(patron) && !ld.HasOverdueLoans(patron, asOf)
}

// Loans returns a copy of the full loan history.
func (ld *Ledger) Loans() []*Loan {
	result := make([]*Loan, len(ld.loans))
	copy(result, ld.loans)
	return result
}

// Fines returns a copy of all fines, paid and unpaid.
func (ld *Ledger) Fines() []*Fine {
	result := make([]*Fine, len(ld.fines))
	copy(result, ld.fines)
	return result
}
