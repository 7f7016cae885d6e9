package cli

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailforward/internal/email"
	"github.com/vijay-prabhu/mailforward/internal/forwarder"
	"github.com/vijay-prabhu/mailforward/internal/telegram"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Sign in and choose the folder, chat and address to forward",
	Long: `Setup signs in if needed, then asks for the mail folder to watch, the
Telegram chat to post to (@channelname or numeric id) and the address whose
mail is forwarded. @channel names are resolved to chat ids before saving.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
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

	bot, err := rt.bot()
	if err != nil {
		return err
	}

	current, err := forwarder.LoadSelection(ctx, rt.db, rt.cfg.Forward)
	if err != nil {
		return err
	}
	sel, err := promptSelection(ctx, rt.terminal, mailbox, bot, current)
	if err != nil {
		return err
	}
	if err := forwarder.SaveSelection(ctx, rt.db, sel); err != nil {
		return err
	}
	fmt.Println(rt.terminal.Color(ColorGreen, "Saved. Run 'mailforward run' to forward new mail."))
	return nil
}

// promptSelection asks for every selection value, offering the current ones
// as defaults, and resolves @channel names to numeric chat ids
func promptSelection(ctx context.Context, t *Terminal, mailbox email.Provider, bot telegram.Sender, current forwarder.Selection) (forwarder.Selection, error) {
	if !t.IsInteractive() {
		return forwarder.Selection{}, fmt.Errorf("missing %s and no terminal to ask; set them under [forward] in the config file",
			strings.Join(current.Missing(), ", "))
	}

	folders, err := mailbox.Folders(ctx)
	if err != nil {
		return forwarder.Selection{}, err
	}
	if len(folders) == 0 {
		return forwarder.Selection{}, errors.New("the mailbox has no folders")
	}

	options := make([]huh.Option[string], 0, len(folders))
	for _, f := range folders {
		options = append(options, huh.NewOption(f.Label(), f.ID))
	}

	sel := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Please select the folder to forward").
				Options(options...).
				Value(&sel.FolderID),
			huh.NewInput().
				Title("Please input @channelname or chat id").
				Placeholder("@channelname").
				Value(&sel.ChatID).
				Validate(validateChat),
			huh.NewInput().
				Title("Please input email to get messages for").
				Placeholder("team@example.com").
				Value(&sel.FilterEmail).
				Validate(validateEmail),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return forwarder.Selection{}, errors.New("setup cancelled")
		}
		return forwarder.Selection{}, err
	}

	sel.ChatID = strings.TrimSpace(sel.ChatID)
	if strings.HasPrefix(sel.ChatID, "@") {
		id, err := bot.ResolveChat(ctx, sel.ChatID)
		if err != nil {
			return forwarder.Selection{}, err
		}
		sel.ChatID = strconv.FormatInt(id, 10)
	}
	return sel, nil
}

func validateChat(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("chat is required")
	}
	if strings.HasPrefix(s, "@") {
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return errors.New("enter @channelname or a numeric chat id")
	}
	return nil
}

func validateEmail(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}
