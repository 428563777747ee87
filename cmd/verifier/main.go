// Package main provides the verifier CLI: offline verification of an
// application from local files, single-document extraction, and the HTTP API
// server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/config"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/logger"
)

var (
	configPath string
	logLevel   string
	verbose    bool

	// appConfig is populated by the root PersistentPreRunE
	appConfig config.Config
)

var rootCmd = &cobra.Command{
	Use:   "verifier",
	Short: "Social support application verifier",
	Long: `Verifies a social support application against its supporting documents:
identity card, bank statement, credit report, medical report, résumé and asset sheet.
Runs the validation, inference and decision pipeline locally or as an HTTP API.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json or config.yaml (values can be overridden by the environment)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

// setup loads configuration and initializes the logger before any command.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	if err := logger.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	appConfig = cfg
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
