package output

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijay-prabhu/mailforward/internal/database"
	"github.com/vijay-prabhu/mailforward/internal/email"
	"github.com/vijay-prabhu/mailforward/internal/forwarder"
)

func TestFoldersTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TableTo(&buf, []email.Folder{{ID: "AQMk-inbox", DisplayName: "Inbox", Unread: 3, Total: 42}}))
	out := buf.String()
	assert.Contains(t, out, "Inbox")
	assert.Contains(t, out, "AQMk-inbox")
	assert.Contains(t, out, "42")

	buf.Reset()
	require.NoError(t, TableTo(&buf, []email.Folder{}))
	assert.Contains(t, buf.String(), "No folders found.")
}

func TestResultTable(t *testing.T) {
	var buf bytes.Buffer
	r := &forwarder.Result{
		Fetched: 4, Matched: 1, Skipped: 1,
		Messages: []forwarder.Outgoing{{Subject: "Hello", From: "bob@example.com", Body: "line one\nline two", HasAttachments: true}},
		Errors:   []error{errors.New("message m9: bad request")},
	}
	require.NoError(t, TableTo(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "line one line two")
	assert.Contains(t, out, "Fetched: 4  Matched: 1  Forwarded: 0  Skipped: 1")
	assert.Contains(t, out, "message m9: bad request")
}

func TestAuthStatusDetail(t *testing.T) {
	var buf bytes.Buffer
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, TableTo(&buf, &AuthStatus{State: "valid", Store: "sqlite", ExpireAt: &exp, User: "Jane (jane@example.com)"}))
	out := buf.String()
	assert.Contains(t, out, "State:       valid")
	assert.Contains(t, out, "Store:       sqlite")
	assert.Contains(t, out, "Jane (jane@example.com)")
}

func TestForwardsTable(t *testing.T) {
	var buf bytes.Buffer
	subject := "Invoice"
	require.NoError(t, TableTo(&buf, []database.Forward{{MessageID: "m1", ChatID: -100, Subject: &subject, ForwardedAt: time.Now()}}))
	assert.Contains(t, buf.String(), "Invoice")
}

func TestUnsupportedType(t *testing.T) {
	require.Error(t, TableTo(&bytes.Buffer{}, 42))
	require.Error(t, Output("xml", nil))
}

func TestJSONTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONTo(&buf, map[string]int{"forwarded": 2}))
	assert.JSONEq(t, `{"forwarded":2}`, buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
