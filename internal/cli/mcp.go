package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailforward/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio transport)",
	Long: `Start the MCP (Model Context Protocol) server using stdio transport.

The server answers questions about the forwarding state: what was forwarded,
the current selection and the saved sign-in. It never contacts Microsoft
Graph or Telegram and never starts a sign-in.

Add to an MCP client config:

{
  "mcpServers": {
    "mailforward": {
      "command": "/path/to/mailforward",
      "args": ["mcp"]
    }
  }
}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	provider, err := rt.authProvider(ctx)
	if err != nil {
		return err
	}

	rt.log.Infow("MCP server listening on stdio", "version", version)
	server := mcp.New(rt.db, provider, rt.cfg.Forward, version, rt.log.Named("mcp"))
	return server.Serve(ctx, os.Stdin, os.Stdout)
}
