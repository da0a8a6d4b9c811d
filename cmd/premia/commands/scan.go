package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanDateFlag string

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the analytics scan over finalized snapshots",
	Long: `Run the post-lock scan: filter calls, compute greeks and IV rank,
and persist the enriched candidates. Aborts when no finalized snapshot
exists for the date.

Example:
  go run ./cmd/premia scan
  go run ./cmd/premia scan --date 2026-01-23`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanDateFlag, "date", "", "scan date (YYYY-MM-DD, default today)")
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := resolveDate(a, scanDateFlag)
	if err != nil {
		return err
	}

	version, err := a.builder.Latest(cmd.Context())
	if err != nil {
		return fmt.Errorf("load universe: %w", err)
	}

	summary, err := a.scanner.Run(cmd.Context(), version.Symbols, date)
	if err != nil {
		return err
	}

	fmt.Printf("Scan for %s\n", summary.ScanDate.Format("2006-01-02"))
	fmt.Printf("   Scanned:    %d\n", summary.Scanned)
	fmt.Printf("   Skipped:    %d\n", summary.Skipped)
	fmt.Printf("   Candidates: %d\n", summary.Candidates)

	return nil
}
