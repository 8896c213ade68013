// Package cli provides the command-line interface for the trading agent.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"polymarket-trader/internal/config"
	"polymarket-trader/internal/logging"
	"polymarket-trader/internal/metrics"
	"polymarket-trader/internal/resilience"
	"polymarket-trader/internal/risk"
	"polymarket-trader/internal/store"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Risk     *risk.Manager
	Store    store.DataStore
	Breakers *resilience.Registry
	Metrics  *metrics.Collector
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	var configDir string

	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "trader",
		Short: "Polymarket Trader - autonomous prediction-market trading agent",
		Long: `Polymarket Trader scans prediction-market listings, scores them against a
probability model, and submits orders under strict risk limits.

It defaults to paper trading; live trading requires POLYGON_PRIVATE_KEY.

Use 'trader run' to start the loop and 'trader status' for the portfolio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			app.Config = cfg

			app.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
				Level:      cfg.Monitoring.LogLevel,
				Console:    true,
				File:       cfg.Monitoring.LogFile != "",
				FilePath:   cfg.Monitoring.LogFile,
				MaxSize:    cfg.Monitoring.LogMaxSizeMB,
				MaxBackups: cfg.Monitoring.LogMaxBackups,
			})

			app.Risk = risk.NewManager(cfg.Trading, app.Logger)
			app.Risk.SetInitialBalance(cfg.Trading.InitialBalance)

			app.Breakers = resilience.NewRegistry(resilience.BreakerConfig{
				FailureThreshold: cfg.API.BreakerThreshold,
				Cooldown:         cfg.API.BreakerCooldown,
			})
			app.Metrics = metrics.NewCollector()

			loadKeyFromKeyring(app, configDir)

			dataStore, err := store.NewSQLiteStore(cfg.Monitoring.DBPath)
			if err != nil {
				app.Logger.Warn().Err(err).Msg("store unavailable, history will not persist")
			} else {
				app.Store = dataStore
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Store != nil {
				app.Store.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.config/polymarket-trader)")

	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newMarketsCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newKeysCmd(app, &configDir))

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
