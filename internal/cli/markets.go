package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"polymarket-trader/internal/agent"
	"polymarket-trader/internal/estimator"
	"polymarket-trader/internal/market"
	"polymarket-trader/pkg/utils"
)

func newMarketsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "markets",
		Short: "Scan markets once and print candidate opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := market.NewClient(app.Config.API, app.Logger)

			markets, err := client.GetMarkets(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("fetching markets: %w", err)
			}

			ag := agent.New(agent.Options{
				Config:    app.Config,
				Logger:    app.Logger,
				Risk:      app.Risk,
				Markets:   client,
				Breaker:   app.Breakers.Get("gamma"),
				Estimator: estimator.NewMarketPrice(),
				Metrics:   app.Metrics,
			})

			bold := color.New(color.Bold)
			bold.Printf("%-60s %-6s %-8s %-10s %-10s\n", "MARKET", "SIDE", "EDGE", "SIZE", "EV")

			found := 0
			for i := range markets {
				opp, ok := ag.AnalyzeMarket(cmd.Context(), &markets[i])
				if !ok {
					continue
				}
				found++
				fmt.Printf("%-60s %-6s %+.2f%%  %-10s %-10s\n",
					utils.Truncate(opp.Title, 60), opp.Side, opp.Edge*100,
					utils.FormatUSD(opp.RecommendedSize), utils.FormatUSD(opp.ExpectedValue))
			}

			fmt.Printf("\n%d of %d markets show a tradable edge\n", found, len(markets))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum markets to fetch")

	return cmd
}
