// Package main is the entry point of the ccr command: the CCR analytics cache
// and shift-counter engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/config"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/version"
)

var (
	// Global flags
	logLevel     string
	databasePath string
	jsonOutput   bool

	cfg *config.Config

	// loadConfig is replaced in tests.
	loadConfig = config.Load
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ccr",
	Short: "CCR analytics cache and shift-counter engine",
	Long: `ccr derives per-shift material counters from hourly CCR readings and
serves monthly COP analyses through a persistent, TTL-bound cache.

Configuration is read from .env files and the environment:
  CCR_DATABASE_PATH       SQLite database path
  CCR_STORE_BACKEND       Cache backend: sqlite or pocketbase
  POCKETBASE_URL          PocketBase base URL
  POCKETBASE_TOKEN        PocketBase auth token
  CCR_READINGS_DIR        Directory watched for reading documents
  CCR_HTTP_ADDR           Address of the HTTP API (run only)
  CACHE_TTL               Analysis cache lifetime (default: 24h)
  CACHE_SWEEP_INTERVAL    Expired-entry sweep interval (default: 1h)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd == versionCmd {
			return nil
		}

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if databasePath != "" {
			cfg.DatabasePath = databasePath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.Configure(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "SQLite database path (overrides CCR_DATABASE_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(footerCmd)
	rootCmd.AddCommand(analysisCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withManager opens the services for the duration of fn.
func withManager(ctx context.Context, fn func(*services.Manager) error) error {
	m, err := services.NewManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing services", "error", closeErr)
		}
	}()
	return fn(m)
}
