package graph

import (
	"strings"

	"github.com/vijay-prabhu/mailforward/internal/email"
)

func convertMessage(m message) email.Email {
	e := email.Email{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Subject:        m.Subject,
		To:             convertRecipients(m.ToRecipients),
		Cc:             convertRecipients(m.CcRecipients),
		Bcc:            convertRecipients(m.BccRecipients),
		Date:           m.ReceivedDateTime,
		HasAttachments: m.HasAttachments,
		IsRead:         m.IsRead,
		BodyType:       email.BodyText,
	}
	if m.From != nil && m.From.EmailAddress != nil {
		e.From = email.Address{Name: m.From.EmailAddress.Name, Email: m.From.EmailAddress.Address}
	}
	if m.Body != nil {
		e.Body = m.Body.Content
		if strings.EqualFold(m.Body.ContentType, "html") {
			e.BodyType = email.BodyHTML
		}
	}
	return e
}

func convertRecipients(rs []recipient) []email.Address {
	var out []email.Address
	for _, r := range rs {
		if r.EmailAddress == nil {
			continue
		}
		out = append(out, email.Address{Name: r.EmailAddress.Name, Email: r.EmailAddress.Address})
	}
	return out
}

func convertFolder(f mailFolder) email.Folder {
	return email.Folder{
		ID:          f.ID,
		DisplayName: f.DisplayName,
		Unread:      f.UnreadItemCount,
		Total:       f.TotalItemCount,
	}
}
