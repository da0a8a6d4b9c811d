package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Manage the symbol universe",
	Long: `Build a new universe version or show the latest one.

Example:
  go run ./cmd/premia universe build
  go run ./cmd/premia universe show`,
}

var universeBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and persist a new universe version",
	RunE:  buildUniverse,
}

var universeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest universe version",
	RunE:  showUniverse,
}

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeBuildCmd)
	universeCmd.AddCommand(universeShowCmd)
}

func buildUniverse(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	version, err := a.builder.Build(cmd.Context())
	if err != nil {
		return err
	}

	id, err := a.builder.Persist(cmd.Context(), version)
	if err != nil {
		return err
	}

	fmt.Printf("Universe version %d persisted (%d symbols)\n", id, len(version.Symbols))
	printTierCounts(version.TierCounts.SP500, version.TierCounts.NasdaqNet,
		version.TierCounts.ETFWhitelist, version.TierCounts.LiquidityExpansion)

	return nil
}

func showUniverse(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	version, err := a.builder.Latest(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Universe version %d (%d symbols, created %s)\n",
		version.VersionID, len(version.Symbols), version.CreatedAt.Format("2006-01-02 15:04:05"))
	printTierCounts(version.TierCounts.SP500, version.TierCounts.NasdaqNet,
		version.TierCounts.ETFWhitelist, version.TierCounts.LiquidityExpansion)

	for _, sym := range version.Symbols {
		fmt.Println(sym)
	}

	return nil
}

func printTierCounts(sp500, nasdaq, etf, liquidity int) {
	fmt.Printf("   S&P 500 core:        %d\n", sp500)
	fmt.Printf("   Nasdaq-100 net:      %d\n", nasdaq)
	fmt.Printf("   ETF whitelist:       %d\n", etf)
	fmt.Printf("   Liquidity expansion: %d\n", liquidity)
}
