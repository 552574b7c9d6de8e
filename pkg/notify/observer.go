package notify

import (
	"library-circulation/pkg/catalog"
)

// Observer is a notification channel. Notify reports whether the message
// was delivered; channels decide themselves what delivery means (an email
// handed to the server, an SMS accepted by the provider, a log line).
type Observer interface {
	Notify(patron *catalog.Patron, message string) bool
	Type() string
}
