/*
main.go - Application entry point

PURPOSE:
  The leave register binary. One cobra root with four commands:

    serve      HTTP API (graceful shutdown on SIGINT/SIGTERM)
    classify   Print a month's classified weekdays
    report     Fill the attendance form for a month
    holidays   List a year's regional holidays

  classify and report read a ledger either from an export file (--ledger)
  or from the configured store (--user).

CONFIGURATION:
  --config points at a YAML file; LEAVE_* environment variables override it.
  See config/config.go for keys.

EXAMPLES:
  # Serve on the GitHub-backed store
  LEAVE_STORE_BACKEND=github LEAVE_STORE_GITHUB_OWNER=acme \
  LEAVE_STORE_GITHUB_REPO=leave-data LEAVE_AUTH_SECRET=... ./server serve

  # Classify an exported ledger
  ./server classify --ledger leave.json --year 2024 --month 1

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
  - recordstore/backend: Store selection
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/leave-register/config"
	"go.uber.org/zap"
)

var (
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "Leave register",
		Long:          "Track annual leave days, classify calendars and fill monthly attendance forms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err = newLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default ./leave.yaml)")

	rootCmd.AddCommand(serveCmd(), classifyCmd(), reportCmd(), holidaysCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
