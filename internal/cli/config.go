package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailforward/internal/auth"
	"github.com/vijay-prabhu/mailforward/internal/config"
	"github.com/vijay-prabhu/mailforward/internal/database"
	"github.com/vijay-prabhu/mailforward/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration and saved selection",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file already exists at %s\n", configPath)
		fmt.Println("Use 'mailforward config show' to view current configuration")
		return nil
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Register an application in the Azure portal with public client flows enabled")
	fmt.Printf("  2. Put its client id in %s or set %s\n", configPath, config.EnvAppID)
	fmt.Printf("  3. Create a bot with @BotFather and set %s\n", config.EnvBotToken)
	fmt.Println("  4. Run 'mailforward setup' to sign in and choose what to forward")

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		fmt.Printf("# Config file: %s\n\n", configPath)
		fmt.Println(string(data))
	case os.IsNotExist(err):
		fmt.Println("No config file found. Run 'mailforward config init' to create one.")
	default:
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		// the file may be incomplete while the user is still editing it
		return nil
	}
	if _, err := os.Stat(cfg.Database.Path); err != nil {
		return nil
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	saved, err := db.Settings(cmd.Context(), auth.StoreKey)
	if err != nil {
		return err
	}
	if outputFmt == output.FormatJSON {
		return output.JSON(saved)
	}

	fmt.Printf("# Saved settings: %s\n\n", cfg.Database.Path)
	for _, key := range []string{database.KeyFolderID, database.KeyChatID, database.KeyFilterEmail, database.KeyDeltaLink} {
		if v, ok := saved[key]; ok {
			fmt.Printf("%-12s %s\n", key, v)
		}
	}
	return nil
}

const defaultConfig = `# mailforward configuration

[app]
# Application (client) id of the Azure app registration; APP_ID overrides it
client_id = ""
# client_secret = ""   # only for confidential clients; APP_SECRET overrides it
tenant = "common"      # TENANT overrides it
scope = "offline_access user.read mail.read"
authority = "https://login.microsoftonline.com"

[auth]
store = "sqlite"       # sqlite, file or keyring
token_path = "~/.config/mailforward/token.json"
keyring_service = "mailforward"
keyring_dir = "~/.config/mailforward/credentials"
expiry_skew_seconds = 0  # refresh this many seconds before the token expires

[database]
path = "~/.local/share/mailforward/mailforward.db"

[graph]
base_url = "https://graph.microsoft.com/v1.0"
page_size = 10

[telegram]
# bot_token = ""       # BOT_TOKEN overrides it
# proxy_url = ""       # PROXY_URL overrides it
rate_per_second = 1.0

[forward]
# Values saved by 'mailforward setup' take precedence over these
# folder_id = ""
# chat_id = "@channel"
# filter_email = "team@example.com"
watch_interval_seconds = 60

[log]
level = "warn"         # debug, info, warn, error; MAILFORWARD_LOG_LEVEL overrides it
`
