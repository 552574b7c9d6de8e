package overdue

import (
	"time"

	"github.com/shopspring/decimal"

	"library-circulation/pkg/catalog"
	"library-circulation/pkg/fines"
	"library-circulation/pkg/ledger"
)

// legacyDailyRate is the flat per-day rate used for loans that carry no
// item reference. Kept for loans created before per-category fine
// strategies existed.
var legacyDailyRate = decimal.NewFromFloat(0.5)

// Detector answers overdue questions over the ledger's loan history.
// Every method is a pure computation as of a caller-supplied date; the
// detector never samples the clock.
type Detector struct {
	ledger *ledger.Ledger
}

func NewDetector(l *ledger.Ledger) *Detector {
	return &Detector{ledger: l}
}

// OverdueLoans returns every loan past due and unreturned as of the date.
func (d *Detector) OverdueLoans(asOf time.Time) []*ledger.Loan {
	result := make([]*ledger.Loan, 0)
	if d.ledger == nil || asOf.IsZero() {
		return result
	}
	for _, loan := range d.ledger.Loans() {
		if loan.IsOverdue(asOf) {
			result = append(result, loan)
		}
	}
	return result
}

// OverdueLoansForPatron filters the overdue set down to one patron.
func (d *Detector) OverdueLoansForPatron(patron *catalog.Patron, asOf time.Time) []*ledger.Loan {
	result := make([]*ledger.Loan, 0)
	if patron == nil || asOf.IsZero() {
		return result
	}
	for _, loan := range d.OverdueLoans(asOf) {
		if loan.Patron != nil && loan.Patron.ID == patron.ID {
			result = append(result, loan)
		}
	}
	return result
}

// IsOverdue reports whether a single loan is overdue as of the date.
func (d *Detector) IsOverdue(loan *ledger.Loan, asOf time.Time) bool {
	if loan == nil || asOf.IsZero() {
		return false
	}
	return loan.IsOverdue(asOf)
}

// DaysOverdue returns the loan's days past due, 0 if not overdue or
// inputs are absent.
func (d *Detector) DaysOverdue(loan *ledger.Loan, asOf time.Time) int {
	if loan == nil || asOf.IsZero() {
		return 0
	}
	return loan.DaysOverdue(asOf)
}

// CalculateFine applies an explicit strategy to the loan's days overdue.
func (d *Detector) CalculateFine(loan *ledger.Loan, asOf time.Time, strategy fines.Strategy) int {
	if loan == nil || asOf.IsZero() || strategy.RatePerDay == 0 {
		return 0
	}
	return strategy.CalculateFine(loan.DaysOverdue(asOf))
}

// CalculateLoanFine picks the strategy from the loan's item category.
// Loans without an item reference fall back to the legacy flat daily rate.
func (d *Detector) CalculateLoanFine(loan *ledger.Loan, asOf time.Time) decimal.Decimal {
	if loan == nil || asOf.IsZero() {
		return decimal.Zero
	}
	days := loan.DaysOverdue(asOf)
	if days <= 0 {
		return decimal.Zero
	}
	if loan.Item == nil {
		return legacyDailyRate.Mul(decimal.NewFromInt(int64(days)))
	}
	strategy, err := fines.ForCategory(loan.Item.Category)
	if err != nil {
		strategy = fines.Default()
	}
	return decimal.NewFromInt(int64(strategy.CalculateFine(days)))
}
