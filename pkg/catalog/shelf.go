package catalog

import (
	"strings"

	"github.com/pkg/errors"

	"library-circulation/pkg/auth"
)

// Shelf is the in-memory item registry. Adding items is an admin action;
// loading from the database on startup goes through AddDirect.
type Shelf struct {
	items []*Item
	auth  *auth.Service
}

func NewShelf(authService *auth.Service) *Shelf {
	return &Shelf{auth: authService}
}

// Add registers a new item. Requires a logged-in admin and a unique key.
func (s *Shelf) Add(item *Item) error {
	if s.auth == nil || !s.auth.IsLoggedIn() {
		return errors.New("admin must be logged in to add items")
	}
	if item == nil {
		return errors.New("item cannot be nil")
	}
	if strings.TrimSpace(item.Key) == "" {
		return errors.New("item key cannot be blank")
	}
	if s.FindByKey(item.Key) != nil {
		return errors.Errorf("duplicate item key: %s", item.Key)
	}
	s.items = append(s.items, item)
	return nil
}

// AddDirect registers an item without the admin check. Returns false for
// nil, blank-key or duplicate items instead of failing.
func (s *Shelf) AddDirect(item *Item) bool {
	if item == nil || strings.TrimSpace(item.Key) == "" {
		return false
	}
	if s.FindByKey(item.Key) != nil {
		return false
	}
	s.items = append(s.items, item)
	return true
}

// FindByKey returns the item with the exact key, or nil.
func (s *Shelf) FindByKey(key string) *Item {
	if key == "" {
		return nil
	}
	for _, item := range s.items {
		if item.Key == key {
			return item
		}
	}
	return nil
}

// SearchByTitle matches titles case-insensitively on substrings.
func (s *Shelf) SearchByTitle(title string) []*Item {
	return s.search(title, func(i *Item) string { return i.Title })
}

// SearchByAuthor matches authors case-insensitively on substrings.
func (s *Shelf) SearchByAuthor(author string) []*Item {
	return s.search(author, func(i *Item) string { return i.Author })
}

func (s *Shelf) search(query string, field func(*Item) string) []*Item {
	result := make([]*Item, 0)
	if query == "" {
		return result
	}
	q := strings.ToLower(query)
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(field(item)), q) {
			result = append(result, item)
		}
	}
	return result
}

// AllItems returns a copy of the registry.
func (s *Shelf) AllItems() []*Item {
	result := make([]*Item, len(s.items))
	copy(result, s.items)
	return result
}
