package overdue

import (
	"time"

	"library-circulation/pkg/catalog"
	"library-circulation/pkg/fines"
)

// CategoryBreakdown is one row of a mixed-media report.
type CategoryBreakdown struct {
	Count     int `json:"count"`
	TotalFine int `json:"totalFine"`
}

// Report aggregates a patron's overdue loans across item categories.
// Loans without an item reference cannot be categorized and are excluded.
type Report struct {
	TotalItems int                          `json:"totalItems"`
	TotalFine  int                          `json:"totalFine"`
	ByCategory map[string]CategoryBreakdown `json:"byCategory"`
}

// MixedMediaOverdueReport computes per-category counts and fines for the
// patron's overdue loans as of the date. Absent patron or date yields an
// empty report, not an error.
func (d *Detector) MixedMediaOverdueReport(patron *catalog.Patron, asOf time.Time) Report {
	report := Report{ByCategory: make(map[string]CategoryBreakdown)}
	if patron == nil || asOf.IsZero() {
		return report
	}

	for _, loan := range d.OverdueLoansForPatron(patron, asOf) {
		if loan.Item == nil {
			continue
		}
		strategy, err := fines.ForCategory(loan.Item.Category)
		if err != nil {
			strategy = fines.Default()
		}
		fine := strategy.CalculateFine(loan.DaysOverdue(asOf))

		report.TotalItems++
		report.TotalFine += fine

		key := string(loan.Item.Category)
		row := report.ByCategory[key]
		row.Count++
		row.TotalFine += fine
		report.ByCategory[key] = row
	}
	return report
}
