package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clickguard",
	Short: "Click fraud signal pipeline",
	Long: `ClickGuard computes per-day, per-ad, per-IP fraud signals from the
click event log and daily ad performance aggregates.

Usage:
  go run ./cmd/clickguard [command]

Examples:
  go run ./cmd/clickguard run
  go run ./cmd/clickguard run --as-of 2026-08-28 --days 3
  go run ./cmd/clickguard collect
  go run ./cmd/clickguard scheduler start
  go run ./cmd/clickguard api
  go run ./cmd/clickguard test-db`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
