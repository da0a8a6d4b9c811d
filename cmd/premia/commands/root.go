package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "premia",
	Short: "premia - EOD option-income screening pipeline",
	Long: `premia CLI

Daily end-of-day pipeline for covered-call and PMCC screening:
snapshot ingestion, universe management, and the post-lock scan.

Usage:
  go run ./cmd/premia [command]

Examples:
  go run ./cmd/premia scheduler start
  go run ./cmd/premia ingest run
  go run ./cmd/premia scan --date 2026-01-23
  go run ./cmd/premia universe build
  go run ./cmd/premia status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}
