package fines

import (
	"github.com/pkg/errors"

	"library-circulation/pkg/catalog"
)

// Strategy converts days overdue into a fine for one item category.
// Strategies are plain values looked up from a fixed rate table.
type Strategy struct {
	Category   catalog.Category
	RatePerDay int
}

// Daily fine rates in currency units per overdue day.
var rates = map[catalog.Category]int{
	catalog.CategoryBook:    10,
	catalog.CategoryCD:      20,
	catalog.CategoryJournal: 15,
}

// CalculateFine returns rate * daysOverdue, or 0 when not overdue.
func (s Strategy) CalculateFine(daysOverdue int) int {
	if daysOverdue <= 0 {
		return 0
	}
	return s.RatePerDay * daysOverdue
}

// ForCategory returns the strategy for a registered category. Unknown
// categories are a contract violation, unlike the ledger's lenient
// handling of bad patron input.
func ForCategory(category catalog.Category) (Strategy, error) {
	rate, ok := rates[category]
	if !ok {
		return Strategy{}, errors.Errorf("no fine strategy registered for category %q", category)
	}
	return Strategy{Category: category, RatePerDay: rate}, nil
}

// Default returns the book strategy, used when no category is determinable.
func Default() Strategy {
	return Strategy{Category: catalog.CategoryBook, RatePerDay: rates[catalog.CategoryBook]}
}
