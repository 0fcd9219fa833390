package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/penwyp/go-fullsnack/internal/application/app"
	"github.com/penwyp/go-fullsnack/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Config and store
	configPath string
	baseURL    string
	timezone   string

	// Logging related
	debug   bool
	logFile string

	rootCmd = &cobra.Command{
		Use:   "fullsnack [flags]",
		Short: "Food log client",
		Long: `fullsnack logs what you eat against a FullSnack store and keeps daily and
weekly calorie totals in view.

Without a subcommand an interactive shell is started.

Examples:
  fullsnack                                   # Open the interactive shell
  fullsnack login ada@example.com             # Sign in
  fullsnack log add "greek yogurt"            # Look up a food and log it
  fullsnack log list --sort calories          # Today's entries by calories
  fullsnack summary weeks --format json       # Weekly totals as JSON
  fullsnack devserver --read-lag 1            # Local store that serves stale first reads`,
		SilenceUsage: true,
		RunE:         runShell,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", app.DefaultConfigPath,
		"Config file path")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "",
		"Store API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone deciding what today is (e.g., Europe/Paris, UTC)")

	// System and debugging
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", "",
		"Log file path (default "+app.DefaultLogFile+")")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file and applies flag overrides
func loadConfig() (*app.AppConfig, error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogging(cfg *app.AppConfig) error {
	path := cfg.LogFile
	if path == "" {
		path = app.ExpandPath(app.DefaultLogFile)
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	_ = util.CloseLogger()
	return util.InitLogger(cfg.LogLevel, path, debug, util.LogFormat(cfg.LogFormat))
}

// openApp builds the client from config and flags. Callers must Close it.
func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := initLogging(cfg); err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
