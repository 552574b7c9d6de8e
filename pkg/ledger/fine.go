package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"library-circulation/pkg/catalog"
)

// Fine is an outstanding debt owed by a patron. Amount is the remaining
// balance; Paid mirrors the balance reaching zero and is only ever updated
// through Pay.
type Fine struct {
	ID          string
	Patron      *catalog.Patron
	Amount      decimal.Decimal
	Paid        bool
	CreatedDate time.Time
}

func NewFine(patron *catalog.Patron, amount decimal.Decimal, createdDate time.Time) *Fine {
	return &Fine{
		ID:          uuid.New().String(),
		Patron:      patron,
		Amount:      amount,
		CreatedDate: createdDate,
	}
}

// Pay reduces the remaining balance. Paying a negative amount is a hard
// failure. Payments beyond the balance clamp it to zero with no credit.
func (f *Fine) Pay(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New("payment amount cannot be negative")
	}
	f.Amount = f.Amount.Sub(amount)
	if f.Amount.Sign() <= 0 {
		f.Amount = decimal.Zero
		f.Paid = true
	}
	return nil
}
