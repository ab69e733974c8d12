package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/africa-covid/backend/pkg/config"
	"github.com/wonny/africa-covid/backend/pkg/logger"
)

var (
	// Global flags
	envFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Africa COVID-19 trend dashboard backend",
	Long: `Africa COVID-19 dashboard backend

Ingests the JHU time series, population, covariate and forecast sources,
publishes an in-memory snapshot and serves per-country and rollup trends.

Usage:
  go run ./cmd/dashboard [command]

Examples:
  go run ./cmd/dashboard api
  go run ./cmd/dashboard ingest --dry-run
  go run ./cmd/dashboard trends --region "Western Africa"`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file (default searches .env, backend/.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads config and builds the logger honoring the global flags
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadFrom(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}
