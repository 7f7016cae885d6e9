package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vijay-prabhu/mailforward/internal/database"
	"github.com/vijay-prabhu/mailforward/internal/email"
	"github.com/vijay-prabhu/mailforward/internal/forwarder"
)

// AuthStatus is the view printed by auth status
type AuthStatus struct {
	State    string        `json:"state"`
	Store    string        `json:"store"`
	ExpireAt *time.Time    `json:"expire_at,omitempty"`
	User     string        `json:"user,omitempty"`
	LastRun  *database.Run `json:"last_run,omitempty"`
}

// Table writes data as a formatted table to stdout
func Table(data interface{}) error {
	return TableTo(os.Stdout, data)
}

// TableTo writes data as a formatted table to the given writer
func TableTo(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case []email.Folder:
		return foldersTable(w, v)
	case *forwarder.Result:
		return resultTable(w, v)
	case []database.Forward:
		return forwardsTable(w, v)
	case *AuthStatus:
		return authStatusDetail(w, v)
	default:
		return fmt.Errorf("unsupported data type for table output: %T", data)
	}
}

func foldersTable(w io.Writer, folders []email.Folder) error {
	if len(folders) == 0 {
		fmt.Fprintln(w, "No folders found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Name", "Unread", "Total", "ID")
	for _, f := range folders {
		if err := table.Append(f.DisplayName, fmt.Sprint(f.Unread), fmt.Sprint(f.Total), f.ID); err != nil {
			return err
		}
	}
	return table.Render()
}

func resultTable(w io.Writer, r *forwarder.Result) error {
	if len(r.Messages) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("Subject", "From", "Body", "Attachments")
		for _, m := range r.Messages {
			attachments := ""
			if m.HasAttachments {
				attachments = "yes"
			}
			if err := table.Append(truncate(m.Subject, 40), truncate(m.From, 30), truncate(oneLine(m.Body), 50), attachments); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Fetched: %d  Matched: %d  Forwarded: %d  Skipped: %d\n", r.Fetched, r.Matched, r.Forwarded, r.Skipped)
	for _, err := range r.Errors {
		fmt.Fprintf(w, "  error: %v\n", err)
	}
	return nil
}

func forwardsTable(w io.Writer, forwards []database.Forward) error {
	if len(forwards) == 0 {
		fmt.Fprintln(w, "Nothing forwarded yet.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Forwarded", "Subject", "From", "Chat")
	for _, f := range forwards {
		if err := table.Append(
			f.ForwardedAt.Format("Jan 02 15:04"),
			truncate(deref(f.Subject), 40),
			truncate(deref(f.Sender), 30),
			fmt.Sprint(f.ChatID),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func authStatusDetail(w io.Writer, s *AuthStatus) error {
	fmt.Fprintf(w, "State:       %s\n", s.State)
	fmt.Fprintf(w, "Store:       %s\n", s.Store)
	if s.ExpireAt != nil {
		fmt.Fprintf(w, "Expires:     %s\n", s.ExpireAt.Local().Format("Jan 02, 2006 15:04:05"))
	}
	if s.User != "" {
		fmt.Fprintf(w, "User:        %s\n", s.User)
	}
	if s.LastRun != nil {
		fmt.Fprintf(w, "Last run:    %s (forwarded %d of %d fetched)\n",
			s.LastRun.StartedAt.Local().Format("Jan 02, 2006 15:04"), s.LastRun.Forwarded, s.LastRun.Fetched)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
