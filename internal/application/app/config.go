package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/constants"
	"github.com/penwyp/go-fullsnack/internal/core/refresh"
	"github.com/penwyp/go-fullsnack/internal/data/api"
	"github.com/penwyp/go-fullsnack/internal/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath      = "~/.fullsnack/config.yaml"
	DefaultCredentialsPath = "~/.fullsnack/credentials.json"
	DefaultLogFile         = "~/.fullsnack/logs/app.log"
)

// AppConfig contains configuration for the client
type AppConfig struct {
	// Store
	BaseURL     string        `yaml:"base_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Session
	CredentialsPath  string `yaml:"credentials_path"`
	WatchCredentials *bool  `yaml:"watch_credentials"`

	// Display settings
	Timezone string `yaml:"timezone"`

	// Refresh settings; a zero value means the default
	Debounce   time.Duration `yaml:"debounce"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	MaxRetries int           `yaml:"max_retries"`

	// Lookup caches
	QueryCacheTTL time.Duration `yaml:"query_cache_ttl"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
	LogFormat string `yaml:"log_format"`
}

// LoadConfig reads a YAML config file. A missing file yields an empty config.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(ExpandPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fills defaults and checks values
func (c *AppConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = api.DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = constants.HTTPTimeout
	}
	if c.CredentialsPath == "" {
		c.CredentialsPath = DefaultCredentialsPath
	}
	c.CredentialsPath = ExpandPath(c.CredentialsPath)
	if c.WatchCredentials == nil {
		watch := true
		c.WatchCredentials = &watch
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if _, err := util.NewTimeProvider(c.Timezone, util.SystemClock()); err != nil {
		return err
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = constants.MaxRefreshRetries
	}
	if c.QueryCacheTTL == 0 {
		c.QueryCacheTTL = constants.QueryCacheTTL
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile != "" {
		c.LogFile = ExpandPath(c.LogFile)
	}
	switch util.LogFormat(c.LogFormat) {
	case "":
		c.LogFormat = string(util.FormatText)
	case util.FormatText, util.FormatJSON:
	default:
		return fmt.Errorf("invalid log_format %q (text, json)", c.LogFormat)
	}

	refreshCfg := c.RefreshConfig()
	if err := refreshCfg.Validate(); err != nil {
		return err
	}
	c.Debounce, c.RetryDelay = refreshCfg.Debounce, refreshCfg.RetryDelay
	return nil
}

// RefreshConfig returns the refresh timings
func (c *AppConfig) RefreshConfig() refresh.Config {
	return refresh.Config{
		Debounce:   c.Debounce,
		RetryDelay: c.RetryDelay,
		MaxRetries: c.MaxRetries,
	}
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
