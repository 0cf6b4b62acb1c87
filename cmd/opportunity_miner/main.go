// Package main provides the entry point for the opportunity miner CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opportunity_miner",
	Short: "Mine Reddit discussions for business opportunities",
	Long: `opportunity_miner scans a subreddit for posts describing real problems, classifies each one
with an LLM into a fixed category taxonomy, and stores the results for reporting across runs.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.configPath, "config", "", "Path to a TOML or JSON config file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.dbURL, "db-url", "", "postgres:// URL or SQLite file path (defaults to DATABASE_URL, then opportunities.db)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.verbose, "verbose", "v", false, "Print detailed progress and debug logs")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
