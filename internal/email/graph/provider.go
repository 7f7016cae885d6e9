// Package graph reads an Outlook mailbox through Microsoft Graph.
package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailforward/internal/email"
)

// DefaultBaseURL is the Graph v1.0 root
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Provider implements the email.Provider interface for Outlook
type Provider struct {
	http *resty.Client
}

// New creates a provider. hc must authorize its requests, typically the
// client returned by auth.Provider.HTTPClient.
func New(baseURL string, hc *http.Client, log *zap.SugaredLogger) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rc := resty.NewWithClient(hc).
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetLogger(log)
	return &Provider{http: rc}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "outlook"
}

// Me returns the signed-in user
func (p *Provider) Me(ctx context.Context) (*email.User, error) {
	var u user
	if err := p.get(ctx, "/me", &u); err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	mail := u.Mail
	if mail == "" {
		mail = u.UserPrincipalName
	}
	return &email.User{ID: u.ID, DisplayName: u.DisplayName, Mail: mail}, nil
}

// Folders lists the top level mail folders, following pagination
func (p *Provider) Folders(ctx context.Context) ([]email.Folder, error) {
	var folders []email.Folder
	link := "/me/mailFolders?$top=100"
	for link != "" {
		var page folderPage
		if err := p.get(ctx, link, &page); err != nil {
			return nil, fmt.Errorf("failed to list folders: %w", err)
		}
		for _, f := range page.Value {
			folders = append(folders, convertFolder(f))
		}
		link = page.NextLink
	}
	return folders, nil
}

// Delta fetches one page of message changes. Removed items are dropped.
func (p *Provider) Delta(ctx context.Context, opts email.DeltaOptions) (*email.DeltaPage, error) {
	link := opts.Cursor
	if link == "" {
		if opts.FolderID == "" {
			return nil, fmt.Errorf("delta requires a folder id or a cursor")
		}
		size := opts.PageSize
		if size <= 0 {
			size = email.DefaultDeltaOptions(opts.FolderID).PageSize
		}
		link = fmt.Sprintf("/me/mailFolders/%s/messages/delta?$top=%d", url.PathEscape(opts.FolderID), size)
	}

	var page messagePage
	if err := p.get(ctx, link, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	out := &email.DeltaPage{Cursor: page.DeltaLink}
	if page.NextLink != "" {
		out.Cursor = page.NextLink
		out.More = true
	}
	for _, m := range page.Value {
		if m.Removed != nil {
			continue
		}
		out.Emails = append(out.Emails, convertMessage(m))
	}
	return out, nil
}

// get issues a GET against a path relative to the base URL or an absolute
// link returned by a previous response
func (p *Provider) get(ctx context.Context, link string, result interface{}) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&apiError{}).
		Get(link)
	if err != nil {
		return err
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*apiError); ok && e.Error.Code != "" {
			return fmt.Errorf("graph returned %d: %s: %s", resp.StatusCode(), e.Error.Code, e.Error.Message)
		}
		return fmt.Errorf("graph returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
