package commands

import (
	"os"
	"os/signal"

	"github.com/penwyp/go-fullsnack/internal/application/shell"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell that keeps totals on screen",
	Long: `Opens an interactive shell. The page on screen (food log, dashboard or a
single day) is redrawn whenever its totals change, including the delayed
refresh after an edit. Type help for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return shell.New(a, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}
