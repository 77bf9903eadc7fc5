package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Arbiter - clinical decision evaluation and orchestration engine",
	Long: `Arbiter evaluates clinical rule sets over patient fact documents and
orchestrates decision support services, producing ranked care
recommendations.

It provides:
  - Condition evaluation over nested fact paths with fan-out
  - Parallel rule-set evaluation with priority ranking
  - Concurrent service orchestration with circuit breakers
  - Rate limiting, feature flags, and A/B allocation`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
