package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var quoteSide string

// quoteCmd represents the quote command
var quoteCmd = &cobra.Command{
	Use:   "quote [contract_symbol]",
	Short: "Show the cached quote for an option contract",
	Long: `Show the last cached bid or ask for a contract with its provenance.
Outside market hours the quote is labelled LAST_MARKET_SESSION.

Example:
  go run ./cmd/premia quote AAPL260320C00210000
  go run ./cmd/premia quote AAPL260320C00210000 --side buy`,
	Args: cobra.ExactArgs(1),
	RunE: showQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().StringVar(&quoteSide, "side", "sell", "quote side (sell = bid, buy = ask)")
}

func showQuote(cmd *cobra.Command, args []string) error {
	contractSymbol := args[0]

	a, err := initApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	switch quoteSide {
	case "sell":
		q, err := a.quoteCache.GetSellQuote(ctx, contractSymbol, 0)
		if err != nil {
			return err
		}
		fmt.Printf("%s sell %.4f (%s, %s old)\n", contractSymbol, q.Price, q.Source, q.Age(time.Now()).Round(time.Second))
	case "buy":
		q, err := a.quoteCache.GetBuyQuote(ctx, contractSymbol, 0)
		if err != nil {
			return err
		}
		fmt.Printf("%s buy %.4f (%s, %s old)\n", contractSymbol, q.Price, q.Source, q.Age(time.Now()).Round(time.Second))
	default:
		return fmt.Errorf("--side must be sell or buy, got %q", quoteSide)
	}

	return nil
}
