package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"polymarket-trader/internal/agent"
	"polymarket-trader/internal/estimator"
	"polymarket-trader/internal/executor"
	"polymarket-trader/internal/market"
)

func newRunCmd(app *App) *cobra.Command {
	var (
		paper    bool
		live     bool
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the autonomous trading loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			if paper {
				app.Config.PaperTrading = true
			}
			if live {
				app.Config.PaperTrading = false
			}
			if interval > 0 {
				app.Config.ScanInterval = interval
			}
			if err := app.Config.Validate(); err != nil {
				return err
			}

			var exec executor.Executor
			if app.Config.PaperTrading {
				app.Logger.Warn().Msg("running in PAPER TRADING mode, no real orders will be placed")
				exec = executor.NewPaper(app.Logger)
			} else {
				app.Logger.Info().Msg("running in LIVE trading mode")
				exec = executor.NewCLOB(app.Config.API, app.Config.PrivateKey, app.Logger)
			}

			var est estimator.Estimator = estimator.NewMarketPrice()
			if key := os.Getenv("OPENAI_API_KEY"); key != "" {
				app.Logger.Info().Msg("using OpenAI probability estimator")
				est = estimator.NewOpenAI(key, os.Getenv("OPENAI_MODEL"))
			}

			ag := agent.New(agent.Options{
				Config:    app.Config,
				Logger:    app.Logger,
				Risk:      app.Risk,
				Markets:   market.NewClient(app.Config.API, app.Logger),
				Breaker:   app.Breakers.Get("gamma"),
				Estimator: est,
				Executor:  exec,
				Metrics:   app.Metrics,
				Store:     app.Store,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if once {
				return ag.RunCycle(ctx)
			}
			if err := ag.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&paper, "paper", false, "force paper trading mode")
	cmd.Flags().BoolVar(&live, "live", false, "enable live trading (requires POLYGON_PRIVATE_KEY)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "override scan interval, e.g. 5m")
	cmd.Flags().BoolVar(&once, "once", false, "run a single scan cycle and exit")
	cmd.MarkFlagsMutuallyExclusive("paper", "live")

	return cmd
}
