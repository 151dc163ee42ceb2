// Package config loads fmsync configuration from file, environment, and
// defaults via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultMaxAttempts bounds retries around each FileMaker call.
	DefaultMaxAttempts = 3

	// DefaultLookback is how many recent projects to scan when collecting
	// manager candidates.
	DefaultLookback = 100

	// DefaultMountPrefix is where archive paths are re-rooted for users.
	DefaultMountPrefix = `N:\PPDO\Records\`
)

// Config holds all configuration for fmsync.
type Config struct {
	FileMaker FileMakerConfig `mapstructure:"filemaker"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// FileMakerConfig holds FileMaker server connection settings.
type FileMakerConfig struct {
	URL            string `mapstructure:"url"`
	Database       string `mapstructure:"database"`
	ProjectsLayout string `mapstructure:"projects_layout"`
	PeopleLayout   string `mapstructure:"people_layout"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	SkipTLSVerify  bool   `mapstructure:"skip_tls_verify"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	ProbeURL       string `mapstructure:"probe_url"`
}

// String returns a safe representation with the password masked.
func (c FileMakerConfig) String() string {
	return fmt.Sprintf("FileMakerConfig{URL:%s, Database:%s, Username:%s, Password:***}",
		c.URL, c.Database, c.Username)
}

// ArchiveConfig holds the secondary Postgres source settings.
type ArchiveConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SyncConfig holds reconciliation and workflow settings.
type SyncConfig struct {
	MountPrefix string `mapstructure:"mount_prefix"`
	Lookback    int    `mapstructure:"lookback"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File, when set, mirrors log output into a rotating logfile.
	File string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("filemaker.database", "UCPPC")
	v.SetDefault("filemaker.projects_layout", "projects_table")
	v.SetDefault("filemaker.people_layout", "people_table")
	v.SetDefault("filemaker.skip_tls_verify", false)
	v.SetDefault("filemaker.max_attempts", DefaultMaxAttempts)
	v.SetDefault("filemaker.probe_url", "https://www.google.com")

	v.SetDefault("sync.mount_prefix", DefaultMountPrefix)
	v.SetDefault("sync.lookback", DefaultLookback)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".fmsync"))
	v.AddConfigPath(".")

	v.SetEnvPrefix("FMSYNC")
	v.AutomaticEnv()

	_ = v.BindEnv("filemaker.url", "FMSYNC_FILEMAKER_URL")
	_ = v.BindEnv("filemaker.username", "FMSYNC_FILEMAKER_USERNAME")
	_ = v.BindEnv("filemaker.password", "FMSYNC_FILEMAKER_PASSWORD")
	_ = v.BindEnv("archive.dsn", "FMSYNC_ARCHIVE_DSN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK — use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.FileMaker.URL == "" {
		return fmt.Errorf("filemaker.url must not be empty")
	}
	if c.FileMaker.Database == "" {
		return fmt.Errorf("filemaker.database must not be empty")
	}
	if c.FileMaker.ProjectsLayout == "" {
		return fmt.Errorf("filemaker.projects_layout must not be empty")
	}
	if c.FileMaker.PeopleLayout == "" {
		return fmt.Errorf("filemaker.people_layout must not be empty")
	}
	if c.FileMaker.MaxAttempts <= 0 {
		return fmt.Errorf("filemaker.max_attempts must be greater than 0")
	}
	if c.Sync.MountPrefix == "" {
		return fmt.Errorf("sync.mount_prefix must not be empty")
	}
	if c.Sync.Lookback <= 0 {
		return fmt.Errorf("sync.lookback must be greater than 0")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
