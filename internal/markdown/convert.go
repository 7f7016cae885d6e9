// Package markdown turns mail bodies into the markdown text sent to chats.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/vijay-prabhu/mailforward/internal/email"
)

// lineBreakPattern matches a newline together with the whitespace around it
var lineBreakPattern = regexp.MustCompile(`\s*\n\s*`)

// Converter renders message bodies as markdown
type Converter struct {
	html *md.Converter
}

// NewConverter creates a converter with the default rules
func NewConverter() *Converter {
	return &Converter{html: md.NewConverter("", true, nil)}
}

// Body converts an email body to normalized markdown. Text bodies are only
// normalized.
func (c *Converter) Body(e *email.Email) (string, error) {
	if e.BodyType != email.BodyHTML {
		return Normalize(e.Body), nil
	}
	out, err := c.html.ConvertString(e.Body)
	if err != nil {
		return "", fmt.Errorf("failed to convert html body: %w", err)
	}
	return Normalize(out), nil
}

// Normalize trims the text and collapses every run of whitespace that
// contains a newline into a single newline
func Normalize(s string) string {
	return lineBreakPattern.ReplaceAllString(strings.TrimSpace(s), "\n")
}
