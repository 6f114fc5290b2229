package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/replit/desktop/internal/config"
)

var (
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage the desktop app configuration.

Without subcommands, shows the current effective configuration.

Examples:
  replit-desktop config              # Show current config
  replit-desktop config init         # Create config file with defaults
  replit-desktop config path         # Show config file location
  replit-desktop config set <key> <value>`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		printConfig(cfg)
	},
}

// configInitCmd creates a config file with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	RunE:  runConfigInit,
}

// configPathCmd shows config file locations.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file location",
	Run:   runConfigPath,
}

// configSetCmd sets one value in the config file.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by key.

Keys use dot notation to access nested values.

Examples:
  replit-desktop config set app.base_url https://staging.replit.com
  replit-desktop config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func printConfig(cfg *config.Config) {
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("Base URL:       %s\n", cfg.App.BaseURL)
	fmt.Printf("Scheme:         %s\n", cfg.App.Scheme)
	fmt.Printf("Home Page:      %s\n", cfg.App.HomePage)
	fmt.Printf("Auth Page:      %s\n", cfg.App.AuthPage)
	fmt.Printf("Update Server:  %s\n", cfg.Update.Server)
	fmt.Printf("Log Level:      %s\n", cfg.Logging.Level)
	fmt.Printf("Log Format:     %s\n", cfg.Logging.Format)
	fmt.Printf("Crash Reports:  %t\n", cfg.Sentry.Enabled)
}

const defaultConfigTemplate = `# Replit desktop app configuration.
# Values here override the built-in defaults; environment variables with the
# REPLIT_DESKTOP_ prefix override both.

app:
  # Site the app hosts. Point at a staging host to test against it.
  base_url: https://replit.com
  scheme: replit
  default_new_repl_language: python3

update:
  server: https://desktop.replit.com

logging:
  # trace, debug, info, warn, error
  level: info
  # json or console
  format: json

sentry:
  enabled: false
  dsn: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting config dir: %v\n", err)
		os.Exit(1)
	}

	locations := []string{
		"./config.yaml",
		filepath.Join(configDir, "config.yaml"),
	}

	fmt.Println("Config search paths (in order):")
	for i, loc := range locations {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, loc, exists)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	var data map[string]interface{}
	if content, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, configPath)
	return nil
}

// setNestedValue walks dot-notation keys, creating intermediate maps.
func setNestedValue(data map[string]interface{}, key, value string) error {
	parts := strings.Split(key, ".")
	current := data

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			if _, exists := current[part]; exists {
				return fmt.Errorf("key %q is not a section", part)
			}
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}

	current[parts[len(parts)-1]] = coerceValue(value)
	return nil
}

// coerceValue keeps numeric and boolean values typed in the YAML output.
func coerceValue(value string) interface{} {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
