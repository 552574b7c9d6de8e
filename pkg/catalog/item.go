package catalog

import (
	"github.com/pkg/errors"
)

// Category tags a catalog item as one of the supported media kinds.
// The tag carries the loan period; fine rates live in pkg/fines.
type Category string

const (
	CategoryBook    Category = "BOOK"
	CategoryCD      Category = "CD"
	CategoryJournal Category = "JOURNAL"
)

var loanPeriods = map[Category]int{
	CategoryBook:    28,
	CategoryCD:      7,
	CategoryJournal: 14,
}

// LoanPeriodDays returns how long an item of this category may be kept out.
func (c Category) LoanPeriodDays() int {
	return loanPeriods[c]
}

func (c Category) Valid() bool {
	_, ok := loanPeriods[c]
	return ok
}

// Item is a physical catalog entry. Key is the ISBN for books, the catalog
// number for CDs and the ISSN for journals. Quantity is only meaningful for
// books; CDs and journals are single-copy.
type Item struct {
	Key       string
	Title     string
	Author    string
	Category  Category
	Available bool
	Quantity  int
}

func NewBook(title, author, isbn string, quantity int) *Item {
	return &Item{
		Key:       isbn,
		Title:     title,
		Author:    author,
		Category:  CategoryBook,
		Available: true,
		Quantity:  quantity,
	}
}

func NewCD(title, artist, catalogNumber string) *Item {
	return &Item{
		Key:       catalogNumber,
		Title:     title,
		Author:    artist,
		Category:  CategoryCD,
		Available: true,
	}
}

func NewJournal(title, issn string) *Item {
	return &Item{
		Key:       issn,
		Title:     title,
		Category:  CategoryJournal,
		Available: true,
	}
}

// IsAvailable reports whether the item can be borrowed right now.
// Book availability is derived from the remaining quantity.
func (i *Item) IsAvailable() bool {
	if i.Category == CategoryBook {
		return i.Available && i.Quantity > 0
	}
	return i.Available
}

// DecrementQuantity takes one copy off the shelf. Going below zero is a
// programming error, never silently clamped.
func (i *Item) DecrementQuantity() error {
	if i.Quantity <= 0 {
		return errors.Errorf("item %s: quantity already zero", i.Key)
	}
	i.Quantity--
	return nil
}

func (i *Item) IncrementQuantity() {
	i.Quantity++
}
