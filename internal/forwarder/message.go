package forwarder

import "fmt"

// AttachmentNote is appended to messages whose attachments are not forwarded
const AttachmentNote = "(the message has attachments, they are not forwarded)"

// Outgoing is a converted message ready to be sent
type Outgoing struct {
	MessageID      string `json:"message_id"`
	Subject        string `json:"subject"`
	From           string `json:"from"`
	Body           string `json:"body"`
	HasAttachments bool   `json:"has_attachments"`
}

// Text renders the chat message: a markdown heading with the subject, the
// body, and the attachment note when needed
func (o Outgoing) Text() string {
	return FormatMessage(o.Subject, o.Body, o.HasAttachments)
}

// FormatMessage builds the text sent to the chat
func FormatMessage(subject, body string, attachments bool) string {
	text := fmt.Sprintf("# %s\n\n%s", subject, body)
	if attachments {
		text += "\n\n" + AttachmentNote
	}
	return text
}
