package notify

import (
	"sync"

	"library-circulation/pkg/catalog"
)

const reminderSubject = "Overdue Reminder"

// EmailSender delivers one email. Implementations are supplied by the
// surrounding application; the core ships only the recording mock.
type EmailSender interface {
	SendEmail(to, subject, body string) bool
}

// EmailObserver is the email notification channel.
type EmailObserver struct {
	sender EmailSender
}

func NewEmailObserver(sender EmailSender) *EmailObserver {
	return &EmailObserver{sender: sender}
}

func (o *EmailObserver) Notify(patron *catalog.Patron, message string) bool {
	if o.sender == nil || patron == nil || patron.Email == "" {
		return false
	}
	return o.sender.SendEmail(patron.Email, reminderSubject, message)
}

func (o *EmailObserver) Type() string {
	return "EMAIL"
}

// EmailRecord is one message captured by the mock server.
type EmailRecord struct {
	To      string
	Subject string
	Body    string
}

// MockEmailServer records messages instead of sending them. Used in tests
// and as the default sender until a real SMTP sender is configured.
type MockEmailServer struct {
	sent []EmailRecord
	mu   sync.Mutex
}

func NewMockEmailServer() *MockEmailServer {
	return &MockEmailServer{sent: make([]EmailRecord, 0)}
}

func (m *MockEmailServer) SendEmail(to, subject, body string) bool {
	if to == "" || subject == "" || body == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, EmailRecord{To: to, Subject: subject, Body: body})
	return true
}

func (m *MockEmailServer) SentEmails() []EmailRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]EmailRecord, len(m.sent))
	copy(result, m.sent)
	return result
}

func (m *MockEmailServer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *MockEmailServer) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = m.sent[:0]
}
