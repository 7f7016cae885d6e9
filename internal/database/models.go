package database

import (
	"database/sql"
	"time"
)

// Setting keys kept in the settings table
const (
	KeyFolderID    = "folderId"
	KeyChatID      = "chatId"
	KeyFilterEmail = "filterEmail"
	KeyDeltaLink   = "deltaLink"
)

// Forward is a message that was delivered to a chat
type Forward struct {
	ID          string    `json:"id"`
	MessageID   string    `json:"message_id"`
	ChatID      int64     `json:"chat_id"`
	Subject     *string   `json:"subject,omitempty"`
	Sender      *string   `json:"sender,omitempty"`
	ForwardedAt time.Time `json:"forwarded_at"`
}

// ForwardListOptions narrows ListForwards
type ForwardListOptions struct {
	Since *time.Time
	Limit int
}

// Run records the counters of one forwarding pass
type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Fetched    int        `json:"fetched"`
	Matched    int        `json:"matched"`
	Forwarded  int        `json:"forwarded"`
	Failed     int        `json:"failed"`
	DryRun     bool       `json:"dry_run"`
}

// NullString is a helper to convert *string to sql.NullString
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr converts sql.NullString to *string
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// TimePtr converts sql.NullTime to *time.Time
func TimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}
