// Package cli implements the autotwitter command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janic0/autotwitter/internal/config"
	"github.com/janic0/autotwitter/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "autotwitter",
	Short: "Scheduled posting and mention triage for Twitter accounts",
	Long: `autotwitter schedules posts under per-account quotas, delivers them on
time, and routes inbound mentions into a Telegram chat for quick replies.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute(version, commit, date string) error {
	rootCmd.Version = formatVersion(version, commit, date)
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/autotwitter/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (console, json)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig()
	}
}

// initConfig loads configuration and applies CLI overrides.
func initConfig() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	appConfig = cfg
	return nil
}

func formatVersion(version, commit, date string) string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}
