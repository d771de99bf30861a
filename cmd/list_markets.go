package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-insider/internal/discovery"
	"github.com/mselser95/polymarket-insider/pkg/config"
	"github.com/mselser95/polymarket-insider/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listMarketsCmd = &cobra.Command{
	Use:   "list-markets",
	Short: "List the markets the detector would monitor",
	Long: `Fetches active markets from the Polymarket Gamma API and applies the same
volume floor and YES/NO token checks the detector uses when choosing markets.`,
	RunE: runListMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listMarketsCmd)
	listMarketsCmd.Flags().IntP("limit", "l", 20, "Maximum number of markets to show")
	listMarketsCmd.Flags().Float64P("min-volume", "m", -1, "Minimum 24h volume (defaults to DISCOVERY_MIN_VOLUME)")
	listMarketsCmd.Flags().BoolP("verbose", "v", false, "Show detailed market information")
}

func runListMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	limit, _ := cmd.Flags().GetInt("limit")
	verbose, _ := cmd.Flags().GetBool("verbose")
	minVolume, _ := cmd.Flags().GetFloat64("min-volume")
	if minVolume < 0 {
		minVolume = cfg.DiscoveryMinVolume
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}

	client := discovery.NewClient(cfg.PolymarketGammaURL, cfg.APITimeout, logger)

	fmt.Printf("Fetching up to %d active markets from Polymarket...\n\n", limit)

	fetched, err := client.FetchActiveMarkets(ctx, 2*limit, 0)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}

	selected := discovery.Select(fetched, limit, minVolume)
	if len(selected) == 0 {
		fmt.Println("No monitorable markets found.")
		return nil
	}

	printMarkets(os.Stdout, selected, verbose)

	fmt.Printf("\nTotal: %d markets (fetched %d)\n", len(selected), len(fetched))

	return nil
}

func printMarkets(out io.Writer, markets []*types.Market, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SLUG\tQUESTION\tVOLUME 24H\tLAST PRICE\n")
	fmt.Fprintf(w, "----\t--------\t----------\t----------\n")

	for _, market := range markets {
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.4f\n",
			market.Slug, truncate(market.Question, 60), market.Volume24hr, market.LastTradePrice)

		if verbose {
			fmt.Fprintf(w, "\tCondition: %s\n", market.Key())
			if yes := market.GetTokenByOutcome(types.OutcomeYes); yes != nil {
				fmt.Fprintf(w, "\tYES Token: %s\n", yes.TokenID)
			}
			if no := market.GetTokenByOutcome(types.OutcomeNo); no != nil {
				fmt.Fprintf(w, "\tNO Token: %s\n", no.TokenID)
			}
			if !market.EndDate.IsZero() {
				fmt.Fprintf(w, "\tEnds: %s\n", market.EndDate.Format("2006-01-02"))
			}
			fmt.Fprintf(w, "\n")
		}
	}

	w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
