package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"polymarket-trader/internal/models"
)

// Property: For any edge, price and confidence inputs, the Kelly position
// size is always clamped into [MinPositionSize, MaxPositionSize]. Degenerate
// inputs (zero edge, extreme prices) must not escape the bounds.
func TestProperty_PositionSizeAlwaysWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	cfg := testConfig()
	m := NewManager(cfg, zerolog.Nop())
	m.SetInitialBalance(cfg.InitialBalance)

	properties.Property("Position size stays within configured bounds", prop.ForAll(
		func(edge, price, confidence float64) bool {
			size := m.PositionSize(edge, price, confidence)
			return size >= cfg.MinPositionSize && size <= cfg.MaxPositionSize
		},
		gen.Float64Range(-0.5, 0.5),
		gen.Float64Range(0.01, 0.99),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// Property: After any sequence of open-then-close round trips, the ledger's
// total P&L equals the sum of the per-close results, and the current balance
// equals the initial balance plus that sum. The ledger never invents or
// loses money.
func TestProperty_TotalPnLEqualsSumOfClosedPnLs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	type roundTrip struct {
		Buy    bool
		Amount float64
		Entry  float64
		Exit   float64
	}

	tripGen := gopter.CombineGens(
		gen.Bool(),
		gen.Float64Range(10, 100),
		gen.Float64Range(0.05, 0.95),
		gen.Float64Range(0.05, 0.95),
	).Map(func(vals []interface{}) roundTrip {
		return roundTrip{
			Buy:    vals[0].(bool),
			Amount: vals[1].(float64),
			Entry:  vals[2].(float64),
			Exit:   vals[3].(float64),
		}
	})

	properties.Property("Total P&L is the sum of realized closes", prop.ForAll(
		func(trips []roundTrip) bool {
			cfg := testConfig()
			m := NewManager(cfg, zerolog.Nop())
			m.SetInitialBalance(cfg.InitialBalance)

			var sum float64
			for i, trip := range trips {
				marketID := fmt.Sprintf("mkt-%d", i)
				side := models.OrderSideBuy
				if !trip.Buy {
					side = models.OrderSideSell
				}
				m.RecordTrade(marketID, "prop market", "tok", side, trip.Amount, trip.Entry, models.TradeStatusOpen, true)
				pnl, err := m.ClosePosition(marketID, trip.Exit, "prop")
				if err != nil {
					return false
				}
				sum += pnl
			}

			summary := m.PortfolioSummary()
			return almostEqual(summary.TotalPnL, sum) &&
				almostEqual(summary.CurrentBalance, cfg.InitialBalance+sum) &&
				summary.OpenPositions == 0
		},
		gen.SliceOf(tripGen),
	))

	properties.TestingRun(t)
}

// Property: The portfolio summary's counters always agree with the
// accessor views: open positions match Positions() and the trade count
// matches Trades().
func TestProperty_SummaryCountersMatchViews(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Summary counters agree with accessor views", prop.ForAll(
		func(opens int) bool {
			cfg := testConfig()
			cfg.MaxTotalPositions = opens + 1
			m := NewManager(cfg, zerolog.Nop())
			m.SetInitialBalance(cfg.InitialBalance)

			for i := 0; i < opens; i++ {
				m.RecordTrade(fmt.Sprintf("mkt-%d", i), "prop market", "tok", models.OrderSideBuy, 50, 0.5, models.TradeStatusOpen, true)
			}

			summary := m.PortfolioSummary()
			return summary.OpenPositions == len(m.Positions()) &&
				summary.TotalTrades == len(m.Trades()) &&
				summary.TotalTrades == opens
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
