package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hward/premia/internal/symbols"
)

var (
	ingestDate    string
	ingestSymbols string
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "EOD snapshot ingestion",
	Long: `Run the snapshot ingestion manually or override a finalized close.

Example:
  go run ./cmd/premia ingest run
  go run ./cmd/premia ingest run --symbols AAPL,MSFT
  go run ./cmd/premia ingest override AAPL 201.50 --date 2026-01-23`,
}

var ingestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest closes and chains for the universe (or --symbols)",
	RunE:  runIngest,
}

var ingestOverrideCmd = &cobra.Command{
	Use:   "override [symbol] [close_price]",
	Short: "Override a finalized close (audited)",
	Long: `Replace a finalized close for one symbol under a new ingestion run id.
The override is logged as an audit event. Use only for verified upstream
corrections.`,
	Args: cobra.ExactArgs(2),
	RunE: runIngestOverride,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestRunCmd)
	ingestCmd.AddCommand(ingestOverrideCmd)

	ingestCmd.PersistentFlags().StringVar(&ingestDate, "date", "", "trading date (YYYY-MM-DD, default today)")
	ingestRunCmd.Flags().StringVar(&ingestSymbols, "symbols", "", "comma-separated symbols (default: latest universe)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := resolveDate(a, ingestDate)
	if err != nil {
		return err
	}

	var syms []string
	if ingestSymbols != "" {
		syms = symbols.Dedupe(symbols.NormalizeAll(strings.Split(ingestSymbols, ",")))
	} else {
		version, err := a.builder.Latest(cmd.Context())
		if err != nil {
			return fmt.Errorf("load universe: %w", err)
		}
		syms = version.Symbols
	}

	report, err := a.ingestor.Run(cmd.Context(), syms, date)
	if err != nil {
		return err
	}

	fmt.Printf("Ingestion for %s\n", date.Format("2006-01-02"))
	fmt.Printf("   Total:         %d\n", report.Total)
	fmt.Printf("   Succeeded:     %d\n", report.Succeeded)
	fmt.Printf("   Already final: %d\n", report.AlreadyFinal)
	fmt.Printf("   Failed:        %d\n", report.Failed)

	return nil
}

func runIngestOverride(cmd *cobra.Command, args []string) error {
	sym := args[0]
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil || price <= 0 {
		return fmt.Errorf("close_price must be a positive number, got %q", args[1])
	}

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := resolveDate(a, ingestDate)
	if err != nil {
		return err
	}

	result, err := a.contract.IngestStockClose(cmd.Context(), sym, date, price, true)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s -> %.4f (%s, run %s)\n",
		symbols.Normalize(sym), date.Format("2006-01-02"), price, result.Status, result.IngestionRunID)

	return nil
}

// resolveDate parses --date or falls back to today's session date.
func resolveDate(a *app, flag string) (time.Time, error) {
	if flag == "" {
		now := time.Now().In(a.clock.Location())
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	date, err := time.Parse("2006-01-02", flag)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", flag, err)
	}
	return date, nil
}
