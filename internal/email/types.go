package email

import (
	"strings"
	"time"
)

// BodyType is the content type of a message body
type BodyType string

const (
	BodyHTML BodyType = "html"
	BodyText BodyType = "text"
)

// Email represents a provider-agnostic email message
type Email struct {
	ID             string    // Provider-specific ID
	ConversationID string    // Thread/conversation ID
	Subject        string    // Email subject
	From           Address   // Sender address
	To             []Address // Recipient addresses
	Cc             []Address
	Bcc            []Address
	Date           time.Time // Receive date
	Body           string
	BodyType       BodyType
	HasAttachments bool
	IsRead         bool
}

// Address represents an email address with optional name
type Address struct {
	Name  string
	Email string
}

// String returns the formatted address
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// Recipients returns To, Cc and Bcc in that order
func (e *Email) Recipients() []Address {
	out := make([]Address, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	out = append(out, e.To...)
	out = append(out, e.Cc...)
	return append(out, e.Bcc...)
}

// HasRecipient reports whether addr is among the recipients, ignoring case
func (e *Email) HasRecipient(addr string) bool {
	want := strings.ToLower(strings.TrimSpace(addr))
	if want == "" {
		return false
	}
	for _, r := range e.Recipients() {
		if strings.ToLower(r.Email) == want {
			return true
		}
	}
	return false
}
