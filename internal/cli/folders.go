package cli

import (
	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/mailforward/internal/output"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the mail folders of the signed-in user",
	RunE:  runFolders,
}

func init() {
	rootCmd.AddCommand(foldersCmd)
}

func runFolders(cmd *cobra.Command, args []string) error {
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

	folders, err := rt.mailProvider(ctx, provider).Folders(ctx)
	if err != nil {
		return err
	}
	return output.Output(outputFmt, folders)
}
