package forwarder

import (
	"context"
	"fmt"
	"strings"

	"github.com/vijay-prabhu/mailforward/internal/config"
	"github.com/vijay-prabhu/mailforward/internal/database"
)

// Selection is what gets forwarded and where
type Selection struct {
	FolderID    string `json:"folder_id"`
	ChatID      string `json:"chat_id"` // numeric id or @channel name
	FilterEmail string `json:"filter_email"`
}

// Complete reports whether every value is set
func (s Selection) Complete() bool {
	return s.FolderID != "" && s.ChatID != "" && s.FilterEmail != ""
}

// Missing lists the unset values by setting key
func (s Selection) Missing() []string {
	var missing []string
	if s.FolderID == "" {
		missing = append(missing, database.KeyFolderID)
	}
	if s.ChatID == "" {
		missing = append(missing, database.KeyChatID)
	}
	if s.FilterEmail == "" {
		missing = append(missing, database.KeyFilterEmail)
	}
	return missing
}

// LoadSelection reads the saved selection; values missing from the database
// fall back to the config file
func LoadSelection(ctx context.Context, db *database.DB, defaults config.ForwardConfig) (Selection, error) {
	sel := Selection{
		FolderID:    defaults.FolderID,
		ChatID:      defaults.ChatID,
		FilterEmail: defaults.FilterEmail,
	}
	fields := map[string]*string{
		database.KeyFolderID:    &sel.FolderID,
		database.KeyChatID:      &sel.ChatID,
		database.KeyFilterEmail: &sel.FilterEmail,
	}
	for key, field := range fields {
		v, ok, err := db.GetSetting(ctx, key)
		if err != nil {
			return Selection{}, fmt.Errorf("failed to load %s: %w", key, err)
		}
		if ok && v != "" {
			*field = v
		}
	}
	return sel, nil
}

// SaveSelection stores the selection. Changing the folder drops the delta
// cursor so the next run starts a fresh round for the new folder.
func SaveSelection(ctx context.Context, db *database.DB, sel Selection) error {
	if !sel.Complete() {
		return fmt.Errorf("selection is incomplete: missing %s", strings.Join(sel.Missing(), ", "))
	}

	previous, _, err := db.GetSetting(ctx, database.KeyFolderID)
	if err != nil {
		return err
	}

	values := map[string]string{
		database.KeyFolderID:    sel.FolderID,
		database.KeyChatID:      sel.ChatID,
		database.KeyFilterEmail: strings.TrimSpace(sel.FilterEmail),
	}
	var drop []string
	if previous != "" && previous != sel.FolderID {
		drop = append(drop, database.KeyDeltaLink)
	}
	if err := db.SaveSettings(ctx, values, drop...); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	return nil
}
