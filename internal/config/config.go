package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config carries the tunables of a run. Zero values never reach callers;
// Load fills in defaults for anything the file and environment leave unset.
type Config struct {
	// DownloadsDir is the root directory attachments are saved under.
	DownloadsDir string `mapstructure:"downloads_dir"`
	// PageSize is the per-page size used when listing messages.
	PageSize int64 `mapstructure:"page_size"`
	// FetchLimit caps how many messages a scan considers. 0 scans everything.
	FetchLimit int `mapstructure:"fetch_limit"`
	// AttachmentDays is the default lookback window for attachment downloads.
	AttachmentDays int    `mapstructure:"attachment_days"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
}

// DefaultDir returns the per-user directory holding config, credentials and
// local state.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mailsweep"), nil
}

// Load reads config.yaml from configDir, layering environment variables
// (MAILSWEEP_*) over the file over built-in defaults. A missing file is not
// an error.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("MAILSWEEP")
	v.AutomaticEnv()

	v.SetDefault("downloads_dir", "downloads")
	v.SetDefault("page_size", 500)
	v.SetDefault("fetch_limit", 0)
	v.SetDefault("attachment_days", 30)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", filepath.Join(configDir, "mailsweep.log"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
