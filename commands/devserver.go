package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/penwyp/go-fullsnack/internal/data/devstore"
	"github.com/penwyp/go-fullsnack/internal/util"
	"github.com/spf13/cobra"
)

var (
	devAddr    string
	devDBPath  string
	devReadLag int
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local store for development",
	Long: `Runs a self-contained store backed by sqlite. With --read-lag N the first N
reads of each aggregate after a write return the old value, the way a
replicated store does.`,
	Args: cobra.NoArgs,
	RunE: runDevserver,
}

func init() {
	rootCmd.AddCommand(devserverCmd)

	devserverCmd.Flags().StringVar(&devAddr, "addr", "127.0.0.1:8000",
		"Listen address")
	devserverCmd.Flags().StringVar(&devDBPath, "db", ":memory:",
		"Sqlite database path")
	devserverCmd.Flags().IntVar(&devReadLag, "read-lag", 0,
		"Stale aggregate reads after each write")
}

func runDevserver(cmd *cobra.Command, args []string) error {
	if devReadLag < 0 {
		return fmt.Errorf("read-lag must be non-negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	tp, err := util.NewTimeProvider(cfg.Timezone, util.SystemClock())
	if err != nil {
		return err
	}
	store, err := devstore.Open(devstore.Options{Path: devDBPath, ReadLag: devReadLag, Location: tp.Location()})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s%s\n", devAddr, devstore.APIPrefix)
	return devstore.NewServer(store).ListenAndServe(ctx, devAddr)
}
