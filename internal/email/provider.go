package email

import (
	"context"
	"fmt"
)

// Provider defines the interface for mailbox providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// Me returns the signed-in user
	Me(ctx context.Context) (*User, error)

	// Folders lists the mail folders of the signed-in user
	Folders(ctx context.Context) ([]Folder, error)

	// Delta returns one page of changes for a folder
	Delta(ctx context.Context, opts DeltaOptions) (*DeltaPage, error)
}

// DeltaOptions configures a delta request. Cursor, when set, is the link
// returned by the previous page and takes precedence over FolderID.
type DeltaOptions struct {
	FolderID string
	Cursor   string
	PageSize int
}

// DefaultDeltaOptions returns the page size used when none is configured
func DefaultDeltaOptions(folderID string) DeltaOptions {
	return DeltaOptions{
		FolderID: folderID,
		PageSize: 10,
	}
}

// DeltaPage is one page of messages plus the cursor for the next request.
// More is true when Cursor points at a further page of the current round
// rather than at the next round of changes.
type DeltaPage struct {
	Emails []Email
	Cursor string
	More   bool
}

// User is the signed-in mailbox owner
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Mail        string `json:"mail"`
}

// String formats the user as "Name (mail)"
func (u User) String() string {
	return u.DisplayName + " (" + u.Mail + ")"
}

// Folder is a mail folder with its counters
type Folder struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Unread      int    `json:"unread"`
	Total       int    `json:"total"`
}

// Label formats the folder for selection prompts
func (f Folder) Label() string {
	return fmt.Sprintf("%s (%d/%d)", f.DisplayName, f.Unread, f.Total)
}
