package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vijay-prabhu/mailforward/internal/database"
	"github.com/vijay-prabhu/mailforward/internal/forwarder"
)

func (s *Server) registerHandlers() {
	s.handlers["list_forwards"] = s.handleListForwards
	s.handlers["get_status"] = s.handleGetStatus
	s.handlers["was_forwarded"] = s.handleWasForwarded
}

type listForwardsParams struct {
	SinceDays int `json:"since_days"`
	Limit     int `json:"limit"`
}

func (s *Server) handleListForwards(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p listForwardsParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}

	opts := database.ForwardListOptions{Limit: 20}
	if p.Limit > 0 {
		opts.Limit = p.Limit
	}
	if p.SinceDays > 0 {
		since := time.Now().AddDate(0, 0, -p.SinceDays)
		opts.Since = &since
	}

	forwards, err := s.db.ListForwards(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if forwards == nil {
		forwards = []database.Forward{}
	}
	return forwards, nil
}

// status is the get_status answer
type status struct {
	SignIn    string              `json:"sign_in"`
	ExpireAt  *time.Time          `json:"token_expire_at,omitempty"`
	Selection forwarder.Selection `json:"selection"`
	Missing   []string            `json:"missing,omitempty"`
	LastRun   *database.Run       `json:"last_run,omitempty"`
}

func (s *Server) status(ctx context.Context) (*status, error) {
	sel, err := forwarder.LoadSelection(ctx, s.db, s.forward)
	if err != nil {
		return nil, err
	}
	last, err := s.db.LastRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	st := &status{
		SignIn:    string(s.tokens.State()),
		Selection: sel,
		Missing:   sel.Missing(),
		LastRun:   last,
	}
	if record := s.tokens.Record(); record != nil {
		st.ExpireAt = &record.ExpireAt
	}
	return st, nil
}

func (s *Server) handleGetStatus(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return s.status(ctx)
}

type wasForwardedParams struct {
	MessageID string `json:"message_id"`
}

func (s *Server) handleWasForwarded(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p wasForwardedParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if p.MessageID == "" {
		return nil, fmt.Errorf("message_id is required")
	}

	done, err := s.db.HasForwarded(ctx, p.MessageID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return map[string]bool{"forwarded": done}, nil
}

func (s *Server) readResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "mailforward://status":
		st, err := s.status(ctx)
		if err != nil {
			return "", err
		}
		return formatStatus(st), nil
	case "mailforward://recent":
		forwards, err := s.db.ListForwards(ctx, database.ForwardListOptions{Limit: 10})
		if err != nil {
			return "", err
		}
		return formatForwards(forwards), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

func formatStatus(st *status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sign-in: %s\n", st.SignIn)
	if st.ExpireAt != nil {
		fmt.Fprintf(&b, "Token expires: %s\n", st.ExpireAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Folder: %s\nChat: %s\nFilter: %s\n", orUnset(st.Selection.FolderID), orUnset(st.Selection.ChatID), orUnset(st.Selection.FilterEmail))
	if st.LastRun != nil {
		fmt.Fprintf(&b, "Last run: %s, fetched %d, forwarded %d, failed %d\n",
			st.LastRun.StartedAt.Format(time.RFC3339), st.LastRun.Fetched, st.LastRun.Forwarded, st.LastRun.Failed)
	} else {
		b.WriteString("Last run: never\n")
	}
	return b.String()
}

func formatForwards(forwards []database.Forward) string {
	if len(forwards) == 0 {
		return "Nothing forwarded yet.\n"
	}
	var b strings.Builder
	for _, f := range forwards {
		subject := "(no subject)"
		if f.Subject != nil && *f.Subject != "" {
			subject = *f.Subject
		}
		fmt.Fprintf(&b, "%s  %s\n", f.ForwardedAt.Format("2006-01-02 15:04"), subject)
	}
	return b.String()
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
