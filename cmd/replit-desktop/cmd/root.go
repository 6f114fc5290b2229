// Package cmd contains the CLI commands for the desktop app.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/replit/desktop/internal/app"
	"github.com/replit/desktop/internal/config"
	"github.com/replit/desktop/internal/diag"
)

var (
	// Version info (set from main)
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"

	// Global flags
	cfgFile  string
	baseURL  string
	logLevel string
	verbose  bool
)

// rootCmd launches the desktop shell. Launching is the default action so a
// double-click or a deep-link activation needs no subcommand.
var rootCmd = &cobra.Command{
	Use:   "replit-desktop [url]",
	Short: "Replit desktop app",
	Long: `Hosts the Replit web app in native windows with deep-link support,
window state persistence and automatic updates.

A custom-scheme URL passed as the argument is handled after startup, the
same way the OS delivers one to a running instance.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runShell,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information from the main package.
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.replit-desktop/config.yaml)")
	rootCmd.Flags().StringVar(&baseURL, "url", "", "override the site base URL (e.g. https://staging.replit.com)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if baseURL != "" {
		cfg.App.BaseURL = baseURL
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(cfg)

	environment := config.EnvironmentName(cfg.App.BaseURL)
	if err := diag.Init(cfg.Sentry, environment, version); err != nil {
		log.Warn().Err(err).Msg("Crash reporting unavailable")
	}

	log.Info().
		Str("version", version).
		Str("environment", environment).
		Str("url", cfg.App.BaseURL).
		Msg("Starting Replit desktop")

	shell, err := app.New(cfg, version, isPackaged(), nil)
	if err != nil {
		return fmt.Errorf("failed to create shell: %w", err)
	}
	return shell.Run(args)
}

// isPackaged reports whether this is a release build. Dev builds keep the
// default "dev" version and never self-update.
func isPackaged() bool {
	return version != "dev"
}

func setupLogging(cfg *config.Config) {
	configured := cfg.Logging.Level
	if logLevel != "" {
		configured = logLevel
	}
	level, err := zerolog.ParseLevel(configured)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// versionCmd displays version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("replit-desktop %s\n", version)
		fmt.Printf("  Build time: %s\n", buildTime)
		fmt.Printf("  Git commit: %s\n", gitCommit)
	},
}
