package catalog

// Patron is a library member. Identity is keyed on ID; Email may be empty,
// in which case reminders cannot be delivered to them.
type Patron struct {
	ID    string
	Name  string
	Email string
}
