package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailforward/internal/auth"
	"github.com/vijay-prabhu/mailforward/internal/output"
)

var (
	authLoginForce bool
	authStatusUser bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Microsoft sign-in",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a device code",
	Long: `Login prints a code and a URL. Open the URL in any browser, enter the
code and sign in; the command finishes once the sign-in is complete.

Examples:
  mailforward auth login           # sign in unless a valid token is saved
  mailforward auth login --force   # discard the saved token and sign in again`,
	RunE: runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved sign-in",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the saved token",
	RunE:  runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authStatusCmd, authLogoutCmd)
	authLoginCmd.Flags().BoolVar(&authLoginForce, "force", false, "Sign in again even if a token is saved")
	authStatusCmd.Flags().BoolVar(&authStatusUser, "user", false, "Also look up the signed-in user (may refresh the token)")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if authLoginForce {
		store, err := rt.credentialStore()
		if err != nil {
			return err
		}
		if err := auth.Forget(ctx, store); err != nil && !errors.Is(err, auth.ErrNotDeletable) {
			return fmt.Errorf("failed to discard saved token: %w", err)
		}
	}

	provider, err := rt.authProvider(ctx)
	if err != nil {
		return err
	}
	if provider.State() == auth.StateValid {
		fmt.Println("Already signed in. Use --force to sign in again.")
	}

	me, err := rt.mailProvider(ctx, provider).Me(ctx)
	if err != nil {
		return err
	}
	fmt.Println(rt.terminal.Color(ColorGreen, fmt.Sprintf("Authorized as %s", me)))
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
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

	status := &output.AuthStatus{
		State: string(provider.State()),
		Store: rt.cfg.Auth.Store,
	}
	if record := provider.Record(); record != nil {
		status.ExpireAt = &record.ExpireAt
	}
	if authStatusUser && provider.State() != auth.StateNoCredential {
		me, err := rt.mailProvider(ctx, provider).Me(ctx)
		if err != nil {
			return err
		}
		status.User = me.String()
		status.State = string(provider.State())
		if record := provider.Record(); record != nil {
			status.ExpireAt = &record.ExpireAt
		}
	}
	if status.LastRun, err = rt.db.LastRun(ctx); err != nil {
		return err
	}

	return output.Output(outputFmt, status)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	store, err := rt.credentialStore()
	if err != nil {
		return err
	}
	if err := auth.Forget(ctx, store); err != nil {
		return fmt.Errorf("failed to delete saved token: %w", err)
	}
	fmt.Println("Signed out.")
	return nil
}
