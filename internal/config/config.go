// Package config handles configuration management for the desktop shell.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Update  UpdateConfig  `mapstructure:"update"`
	Logging LoggingConfig `mapstructure:"logging"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
}

// AppConfig holds the identity of the hosted web application.
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Scheme   string `mapstructure:"scheme"`    // custom deep-link URL scheme
	BaseURL  string `mapstructure:"base_url"`  // trusted remote origin
	HomePage string `mapstructure:"home_page"` // path of the in-app home page
	AuthPage string `mapstructure:"auth_page"` // path of the dedicated auth page

	// Language preselected when a "new repl" deep link carries no language.
	DefaultNewReplLanguage string `mapstructure:"default_new_repl_language"`
}

// UpdateConfig holds auto-update configuration.
type UpdateConfig struct {
	Server          string `mapstructure:"server"`
	BaseIntervalSec int    `mapstructure:"base_interval_sec"`
	MaxIntervalSec  int    `mapstructure:"max_interval_sec"`
	MaxChecks       int    `mapstructure:"max_checks"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SentryConfig holds crash reporting configuration.
type SentryConfig struct {
	DSN     string `mapstructure:"dsn"`
	Enabled bool   `mapstructure:"enabled"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default search paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.replit-desktop")
	}

	// Environment variable prefix
	v.SetEnvPrefix("REPLIT_DESKTOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file (optional - not an error if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Replit")
	v.SetDefault("app.scheme", "replit")
	v.SetDefault("app.base_url", "https://replit.com")
	v.SetDefault("app.home_page", "/desktopApp/home")
	v.SetDefault("app.auth_page", "/desktopApp/login")
	v.SetDefault("app.default_new_repl_language", "python3")

	// Update defaults
	v.SetDefault("update.server", "https://desktop.replit.com")
	v.SetDefault("update.base_interval_sec", 300)
	v.SetDefault("update.max_interval_sec", 21600)
	v.SetDefault("update.max_checks", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Sentry defaults
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.enabled", true)
}

// Validate checks that the configuration is usable.
func Validate(cfg *Config) error {
	u, err := url.Parse(cfg.App.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", cfg.App.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q must use http or https", cfg.App.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", cfg.App.BaseURL)
	}
	if cfg.App.Scheme == "" {
		return fmt.Errorf("deep-link scheme must not be empty")
	}
	if !strings.HasPrefix(cfg.App.HomePage, "/") {
		return fmt.Errorf("home page %q must be an absolute path", cfg.App.HomePage)
	}
	if !strings.HasPrefix(cfg.App.AuthPage, "/") {
		return fmt.Errorf("auth page %q must be an absolute path", cfg.App.AuthPage)
	}
	if cfg.Update.BaseIntervalSec <= 0 {
		return fmt.Errorf("update base interval must be positive")
	}
	if cfg.Update.MaxIntervalSec < cfg.Update.BaseIntervalSec {
		return fmt.Errorf("update max interval must be >= base interval")
	}
	return nil
}

// GetConfigDir returns the directory for configuration and persisted state.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".replit-desktop"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
