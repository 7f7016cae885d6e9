package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailforward/internal/forwarder"
	"github.com/vijay-prabhu/mailforward/internal/output"
	"github.com/vijay-prabhu/mailforward/internal/telegram"
)

var (
	runDryRun   bool
	runWatch    bool
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Forward new mail to the chat",
	Long: `Run signs in if needed, asks for any missing selection, then fetches the
changes of the selected folder since the previous run and forwards the
messages addressed to the filter address.

Examples:
  mailforward run                        # one pass
  mailforward run --dry-run              # show what would be sent
  mailforward run --watch --interval=5m  # keep forwarding until Ctrl-C`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print messages instead of sending them; the cursor is not advanced")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Repeat until interrupted")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Time between passes with --watch (default: forward.watch_interval_seconds)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	provider, err := rt.authProvider(ctx)
	if err != nil {
		return err
	}
	mailbox := rt.mailProvider(ctx, provider)

	me, err := mailbox.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Authorized as %s\n", me)

	var sender telegram.Sender
	var bot *telegram.Bot
	if !runDryRun {
		if bot, err = rt.bot(); err != nil {
			return err
		}
		sender = bot
	}

	sel, err := forwarder.LoadSelection(ctx, rt.db, rt.cfg.Forward)
	if err != nil {
		return err
	}
	if !sel.Complete() {
		if bot == nil {
			if bot, err = rt.bot(); err != nil {
				return err
			}
		}
		if sel, err = promptSelection(ctx, rt.terminal, mailbox, bot, sel); err != nil {
			return err
		}
		if err := forwarder.SaveSelection(ctx, rt.db, sel); err != nil {
			return err
		}
	}

	fw := forwarder.New(rt.db, mailbox, sender, rt.cfg.Graph.PageSize, rt.log.Named("forwarder"))
	opts := forwarder.RunOptions{DryRun: runDryRun, Progress: progressPrinter(rt.terminal)}

	if !runWatch {
		return forwardOnce(ctx, fw, sel, opts, rt.terminal)
	}

	interval := runInterval
	if interval <= 0 {
		interval = rt.cfg.Forward.WatchInterval()
	}
	fmt.Printf("Watching every %s, press Ctrl-C to stop\n", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := forwardOnce(ctx, fw, sel, opts, rt.terminal); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// auth failures need the user; anything else is retried next tick
			if isAuthError(err) {
				return err
			}
			rt.log.Warnw("Forwarding pass failed", "error", err)
			fmt.Println(rt.terminal.Color(ColorRed, fmt.Sprintf("Pass failed: %v", err)))
		}

		select {
		case <-ctx.Done():
			fmt.Println("Stopped.")
			return nil
		case <-ticker.C:
		}
	}
}

func forwardOnce(ctx context.Context, fw *forwarder.Forwarder, sel forwarder.Selection, opts forwarder.RunOptions, t *Terminal) error {
	result, err := fw.Run(ctx, sel, opts)
	t.ClearLine()
	if err != nil {
		return err
	}

	if outputFmt == output.FormatJSON {
		return output.JSON(struct {
			*forwarder.Result
			Errors []string `json:"errors,omitempty"`
		}{result, result.ErrorStrings()})
	}
	if result.Fetched == 0 && len(result.Errors) == 0 {
		fmt.Println(t.Color(ColorGray, fmt.Sprintf("%s no new messages", time.Now().Format("15:04:05"))))
		return nil
	}
	return output.Table(result)
}

func progressPrinter(t *Terminal) forwarder.ProgressCallback {
	return func(p forwarder.Progress) {
		if !t.IsTerminal {
			return
		}
		var msg string
		switch p.Phase {
		case forwarder.PhaseFetching:
			msg = fmt.Sprintf("%s Fetching messages... %d so far", t.Spinner(), p.Current)
		case forwarder.PhaseSending:
			msg = fmt.Sprintf("Sending: %d/%d (%d%%)", p.Current, p.Total, p.Percentage())
		}
		t.ClearLine()
		fmt.Print(t.Color(PhaseColor(string(p.Phase)), msg))
	}
}
