package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"polymarket-trader/pkg/utils"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current portfolio and breaker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := app.Risk.PortfolioSummary()

			bold := color.New(color.Bold)
			bold.Println("Portfolio")
			fmt.Printf("  Balance:            %s\n", utils.FormatUSD(summary.CurrentBalance))
			fmt.Printf("  Peak balance:       %s\n", utils.FormatUSD(summary.PeakBalance))
			fmt.Printf("  Total P&L:          %s\n", pnlString(summary.TotalPnL))
			fmt.Printf("  Today's P&L:        %s\n", pnlString(summary.DailyPnL))
			fmt.Printf("  This week's P&L:    %s\n", pnlString(summary.WeeklyPnL))
			fmt.Printf("  Drawdown:           %s\n", utils.FormatPercent(summary.Drawdown))
			fmt.Printf("  Open positions:     %d\n", summary.OpenPositions)
			fmt.Printf("  Total trades:       %d\n", summary.TotalTrades)
			fmt.Printf("  Consecutive losses: %d\n", summary.ConsecutiveLosses)

			if summary.IsHalted {
				color.Red("  Trading:            HALTED")
			} else {
				color.Green("  Trading:            active")
			}

			positions := app.Risk.Positions()
			if len(positions) > 0 {
				fmt.Println()
				bold.Println("Open positions")
				for _, p := range positions {
					fmt.Printf("  %-50s %s %s @ %.3f (unrealized %s)\n",
						utils.Truncate(p.MarketTitle, 50), p.Side,
						utils.FormatUSD(p.Amount), p.EntryPrice, pnlString(p.UnrealizedPnL))
				}
			}

			stats := app.Breakers.AllStats()
			if len(stats) > 0 {
				fmt.Println()
				bold.Println("Breakers")
				for _, s := range stats {
					fmt.Printf("  %-12s %-8s failures=%d/%d rejected=%d failure_rate=%.1f%%\n",
						s.Name, s.State, s.CurrentFailures, s.TotalFailures, s.TotalRejected, s.FailureRate())
				}
			}

			m := app.Metrics.Snapshot()
			fmt.Println()
			bold.Println("Metrics")
			fmt.Printf("  API calls:          %d (%d errors)\n", m.APICalls, m.APIErrors)
			fmt.Printf("  Markets scanned:    %d\n", m.MarketsScanned)
			fmt.Printf("  Opportunities:      %d\n", m.Opportunities)
			fmt.Printf("  Executions:         %d ok, %d failed\n", m.ExecutionsOK, m.ExecutionsFailed)

			return nil
		},
	}
}

func pnlString(pnl float64) string {
	formatted := utils.FormatUSD(pnl)
	switch {
	case pnl > 0:
		return color.GreenString("+" + formatted)
	case pnl < 0:
		return color.RedString(formatted)
	default:
		return formatted
	}
}
