// Package forwarder moves matching mail from a folder to a chat.
package forwarder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailforward/internal/database"
	"github.com/vijay-prabhu/mailforward/internal/email"
	"github.com/vijay-prabhu/mailforward/internal/markdown"
	"github.com/vijay-prabhu/mailforward/internal/telegram"
)

// maxPages bounds a single run so a misbehaving server cannot loop forever
const maxPages = 1000

// Forwarder orchestrates one pass of fetch, filter, convert and send
type Forwarder struct {
	db        *database.DB
	provider  email.Provider
	sender    telegram.Sender
	converter *markdown.Converter
	log       *zap.SugaredLogger
	pageSize  int
}

// New creates a Forwarder. sender may be nil for dry runs.
func New(db *database.DB, provider email.Provider, sender telegram.Sender, pageSize int, log *zap.SugaredLogger) *Forwarder {
	return &Forwarder{
		db:        db,
		provider:  provider,
		sender:    sender,
		converter: markdown.NewConverter(),
		log:       log,
		pageSize:  pageSize,
	}
}

// RunOptions configures a run
type RunOptions struct {
	DryRun   bool             // convert and report, but send nothing and keep the cursor
	Progress ProgressCallback // Optional progress callback
}

// Result contains the results of a run
type Result struct {
	Fetched   int        `json:"fetched"`
	Matched   int        `json:"matched"`
	Forwarded int        `json:"forwarded"`
	Skipped   int        `json:"skipped"` // already forwarded earlier
	Messages  []Outgoing `json:"messages"`
	Errors    []error    `json:"-"`
}

// ErrorStrings returns the run errors as text
func (r *Result) ErrorStrings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Run fetches the pending changes of the selected folder and forwards the
// messages addressed to the filter address. The delta cursor of each page
// is saved before its messages are sent, so a failed send is not retried.
func (f *Forwarder) Run(ctx context.Context, sel Selection, opts RunOptions) (*Result, error) {
	if !sel.Complete() {
		return nil, fmt.Errorf("nothing selected, run setup first")
	}
	if !opts.DryRun && f.sender == nil {
		return nil, errors.New("a sender is required unless dry run")
	}

	report := func(phase ProgressPhase, current, total int, desc string) {
		if opts.Progress != nil {
			opts.Progress(Progress{Phase: phase, Current: current, Total: total, Description: desc})
		}
	}

	var chatID int64
	if !opts.DryRun {
		id, err := f.sender.ResolveChat(ctx, sel.ChatID)
		if err != nil {
			return nil, err
		}
		chatID = id
	}

	run, err := f.db.StartRun(ctx, opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	result := &Result{}
	runErr := f.drain(ctx, sel, chatID, opts, result, report)

	run.Fetched = result.Fetched
	run.Matched = result.Matched
	run.Forwarded = result.Forwarded
	run.Failed = len(result.Errors)
	if err := f.db.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		f.log.Warnw("Failed to record run result", "error", err)
	}

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

func (f *Forwarder) drain(ctx context.Context, sel Selection, chatID int64, opts RunOptions, result *Result, report func(ProgressPhase, int, int, string)) error {
	cursor, _, err := f.db.GetSetting(ctx, database.KeyDeltaLink)
	if err != nil {
		return fmt.Errorf("failed to load delta link: %w", err)
	}

	for pages := 0; pages < maxPages; pages++ {
		report(PhaseFetching, result.Fetched, 0, "Fetching messages")
		page, err := f.provider.Delta(ctx, email.DeltaOptions{
			FolderID: sel.FolderID,
			Cursor:   cursor,
			PageSize: f.pageSize,
		})
		if err != nil {
			return err
		}
		result.Fetched += len(page.Emails)

		if !opts.DryRun && page.Cursor != "" {
			if err := f.db.SetSetting(ctx, database.KeyDeltaLink, page.Cursor); err != nil {
				return fmt.Errorf("failed to save delta link: %w", err)
			}
		}

		if err := f.forwardPage(ctx, page.Emails, sel, chatID, opts, result, report); err != nil {
			return err
		}

		if !page.More || page.Cursor == "" {
			return nil
		}
		cursor = page.Cursor
	}

	f.log.Warnw("Stopped after page limit", "pages", maxPages)
	return nil
}

func (f *Forwarder) forwardPage(ctx context.Context, emails []email.Email, sel Selection, chatID int64, opts RunOptions, result *Result, report func(ProgressPhase, int, int, string)) error {
	var outgoing []Outgoing
	for i := range emails {
		e := &emails[i]
		if !e.HasRecipient(sel.FilterEmail) {
			continue
		}
		result.Matched++

		done, err := f.db.HasForwarded(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("failed to check forward log: %w", err)
		}
		if done {
			result.Skipped++
			continue
		}

		body, err := f.converter.Body(e)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("message %s: %w", e.ID, err))
			continue
		}
		outgoing = append(outgoing, Outgoing{
			MessageID:      e.ID,
			Subject:        e.Subject,
			From:           e.From.String(),
			Body:           body,
			HasAttachments: e.HasAttachments,
		})
	}

	for i, out := range outgoing {
		result.Messages = append(result.Messages, out)
		if opts.DryRun {
			continue
		}

		report(PhaseSending, i+1, len(outgoing), "Sending to chat")
		if err := f.sender.Send(ctx, chatID, out.Text()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warnw("Failed to forward message", "message", out.MessageID, "error", err)
			result.Errors = append(result.Errors, fmt.Errorf("message %s: %w", out.MessageID, err))
			continue
		}

		subject, from := out.Subject, out.From
		if err := f.db.RecordForward(ctx, &database.Forward{
			MessageID: out.MessageID,
			ChatID:    chatID,
			Subject:   &subject,
			Sender:    &from,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to log forward of %s: %w", out.MessageID, err))
		}
		result.Forwarded++
	}
	return nil
}
