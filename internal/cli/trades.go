package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"polymarket-trader/internal/store"
	"polymarket-trader/pkg/utils"
)

func newTradesCmd(app *App) *cobra.Command {
	var (
		marketID string
		status   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Show persisted trade history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("trade history unavailable: store not initialized")
			}

			trades, err := app.Store.GetTrades(cmd.Context(), store.TradeFilter{
				MarketID: marketID,
				Status:   status,
				Limit:    limit,
			})
			if err != nil {
				return fmt.Errorf("querying trades: %w", err)
			}
			if len(trades) == 0 {
				fmt.Println("No trades recorded")
				return nil
			}

			bold := color.New(color.Bold)
			bold.Printf("%-20s %-50s %-5s %-10s %-8s %-8s %s\n",
				"TIME", "MARKET", "SIDE", "AMOUNT", "PRICE", "STATUS", "PNL")

			for _, t := range trades {
				pnl := "-"
				if t.PnL != nil {
					pnl = pnlString(*t.PnL)
				}
				fmt.Printf("%-20s %-50s %-5s %-10s %-8.3f %-8s %s\n",
					t.Timestamp.Format("2006-01-02 15:04:05"),
					utils.Truncate(t.MarketTitle, 50),
					t.Side, utils.FormatUSD(t.Amount), t.Price, t.Status, pnl)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&marketID, "market", "", "filter by market id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, closed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum trades to show")

	return cmd
}
