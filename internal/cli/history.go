package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailforward/internal/database"
	"github.com/vijay-prabhu/mailforward/internal/output"
)

var (
	historyLimit int
	historyDays  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List forwarded messages",
	Long: `History lists the messages that were delivered to the chat, newest first.

Examples:
  mailforward history             # last 20 messages
  mailforward history --days=7    # everything from the past week`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of messages")
	historyCmd.Flags().IntVar(&historyDays, "days", 0, "Only messages forwarded in the last N days")
}

func runHistory(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := database.ForwardListOptions{Limit: historyLimit}
	if historyDays > 0 {
		since := time.Now().AddDate(0, 0, -historyDays)
		opts.Since = &since
	}

	forwards, err := rt.db.ListForwards(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if forwards == nil {
		forwards = []database.Forward{}
	}
	return output.Output(outputFmt, forwards)
}
