// Package agent implements the autonomous scan/decide/execute loop.
package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/estimator"
	"polymarket-trader/internal/executor"
	"polymarket-trader/internal/metrics"
	"polymarket-trader/internal/models"
	"polymarket-trader/internal/resilience"
	"polymarket-trader/internal/risk"
	"polymarket-trader/internal/store"
)

// errorBackoff is how long the continuous loop waits after a failed cycle.
const errorBackoff = time.Minute

// MarketSource supplies market listings. Satisfied by market.Client.
type MarketSource interface {
	GetMarkets(ctx context.Context, limit int) ([]models.Market, error)
	GetMarket(ctx context.Context, conditionID string) (*models.Market, error)
}

// Agent wires market discovery, probability estimation, risk gating and
// order execution into one loop.
type Agent struct {
	cfg       *config.Config
	logger    zerolog.Logger
	risk      *risk.Manager
	markets   MarketSource
	breaker   *resilience.Breaker
	estimator estimator.Estimator
	executor  executor.Executor
	metrics   *metrics.Collector
	store     store.DataStore
}

// Options holds the agent's collaborators.
type Options struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Risk      *risk.Manager
	Markets   MarketSource
	Breaker   *resilience.Breaker
	Estimator estimator.Estimator
	Executor  executor.Executor
	Metrics   *metrics.Collector
	Store     store.DataStore
}

// New creates an agent.
func New(opts Options) *Agent {
	return &Agent{
		cfg:       opts.Config,
		logger:    opts.Logger.With().Str("component", "agent").Logger(),
		risk:      opts.Risk,
		markets:   opts.Markets,
		breaker:   opts.Breaker,
		estimator: opts.Estimator,
		executor:  opts.Executor,
		metrics:   opts.Metrics,
		store:     opts.Store,
	}
}

// AnalyzeMarket evaluates one market for a tradable edge. The second return
// is false when the market is filtered out or shows no opportunity.
func (a *Agent) AnalyzeMarket(ctx context.Context, m *models.Market) (*models.Opportunity, bool) {
	if m.Liquidity < a.cfg.Trading.MinLiquidity {
		return nil, false
	}
	if len(m.Tokens) < 2 {
		return nil, false
	}

	yesPrice := m.YesPrice()
	noPrice := m.Tokens[1].Price
	if yesPrice <= 0 || yesPrice >= 1 || noPrice <= 0 || noPrice >= 1 {
		a.logger.Warn().Str("market", m.Question).Msg("invalid prices, skipping")
		return nil, false
	}

	estimate, err := a.estimator.EstimateYesProbability(ctx, m)
	if err != nil {
		a.logger.Error().Err(err).Str("market", m.Question).Msg("probability estimate failed")
		return nil, false
	}

	edge := estimate - yesPrice
	if abs(edge) <= a.cfg.Trading.ConfidenceThreshold {
		return nil, false
	}

	confidence := abs(edge) * 2
	if confidence > 1 {
		confidence = 1
	}

	size := a.risk.PositionSize(edge, yesPrice, confidence)

	side := models.OrderSideBuy
	if edge <= 0 {
		side = models.OrderSideSell
	}

	opp := &models.Opportunity{
		MarketID:        m.ConditionID,
		Title:           m.Question,
		TokenID:         m.Tokens[0].TokenID,
		Side:            side,
		Edge:            edge,
		Confidence:      confidence,
		Price:           yesPrice,
		RecommendedSize: size,
		ExpectedValue:   expectedValue(edge, yesPrice, size),
	}

	a.logger.Info().
		Str("market", opp.Title).
		Float64("edge", edge).
		Float64("confidence", confidence).
		Float64("size", size).
		Float64("ev", opp.ExpectedValue).
		Msg("opportunity found")

	return opp, true
}

// expectedValue computes the expected value of taking the trade at the
// given size.
func expectedValue(edge, yesPrice, size float64) float64 {
	var winAmount, lossAmount, probWin float64
	if edge > 0 { // buying YES
		winAmount = (1 - yesPrice) * size
		lossAmount = yesPrice * size
		probWin = yesPrice + edge
	} else { // buying NO
		winAmount = yesPrice * size
		lossAmount = (1 - yesPrice) * size
		probWin = 1 - (yesPrice + edge)
	}
	return probWin*winAmount - (1-probWin)*lossAmount
}

// RunCycle executes one scan cycle: fetch markets, analyze, and trade the
// best opportunities that pass the risk gate.
func (a *Agent) RunCycle(ctx context.Context) error {
	start := time.Now()
	a.logger.Info().Msg("starting market scan cycle")

	marketList, err := a.fetchMarkets(ctx)
	if err != nil {
		return fmt.Errorf("fetching markets: %w", err)
	}
	if len(marketList) == 0 {
		a.logger.Warn().Msg("no markets fetched, skipping cycle")
		return nil
	}

	var opportunities []*models.Opportunity
	for i := range marketList {
		if opp, ok := a.AnalyzeMarket(ctx, &marketList[i]); ok {
			opportunities = append(opportunities, opp)
		}
	}
	a.metrics.RecordScan(len(marketList), len(opportunities))

	a.logger.Info().
		Int("markets", len(marketList)).
		Int("opportunities", len(opportunities)).
		Msg("scan complete")

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].ExpectedValue > opportunities[j].ExpectedValue
	})

	attempted, executed := 0, 0
	for _, opp := range opportunities {
		if attempted >= a.cfg.Trading.TopOpportunities {
			break
		}
		attempted++

		if a.tryExecute(ctx, opp) {
			executed++
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.Trading.RateLimitDelay):
		}
	}

	a.recordCycle(ctx, start, len(marketList), len(opportunities), attempted, executed)
	return nil
}

// tryExecute gates, sizes and submits one opportunity, recording the outcome
// in the ledger and the store.
func (a *Agent) tryExecute(ctx context.Context, opp *models.Opportunity) bool {
	allowed, reason := a.risk.CanTrade(opp.RecommendedSize, opp.MarketID)
	if !allowed {
		a.logger.Warn().Str("market", opp.Title).Str("reason", reason).Msg("trade blocked")
		return false
	}

	// Refresh the market for a current token price before submitting.
	m, err := a.fetchMarket(ctx, opp.MarketID)
	if err != nil {
		a.logger.Warn().Err(err).Str("market", opp.Title).Msg("could not refresh market, skipping")
		return false
	}
	if len(m.Tokens) == 0 {
		a.logger.Warn().Str("market", opp.Title).Msg("no tokens in market, skipping")
		return false
	}
	tokenID := m.Tokens[0].TokenID
	price := m.YesPrice()

	fill, err := a.executor.Execute(ctx, &models.Order{
		MarketID: opp.MarketID,
		TokenID:  tokenID,
		Side:     opp.Side,
		Amount:   opp.RecommendedSize,
		Price:    price,
	})
	if err != nil {
		a.logger.Error().Err(err).Str("market", opp.Title).Msg("trade execution failed")
		a.metrics.RecordExecution(false)
		return false
	}

	trade := a.risk.RecordTrade(opp.MarketID, opp.Title, tokenID, opp.Side,
		fill.Amount, fill.Price, models.TradeStatusOpen, fill.IsPaper)

	if a.store != nil {
		if err := a.store.LogTrade(ctx, &trade); err != nil {
			a.logger.Error().Err(err).Msg("persisting trade failed")
		}
	}

	a.metrics.RecordExecution(true)
	return true
}

// fetchMarkets calls the Gamma API through the breaker.
func (a *Agent) fetchMarkets(ctx context.Context) ([]models.Market, error) {
	start := time.Now()
	markets, err := resilience.ExecuteWithResult(a.breaker, func() ([]models.Market, error) {
		return a.markets.GetMarkets(ctx, a.cfg.API.MarketsFetchLimit)
	})
	a.metrics.RecordAPICall(time.Since(start), err != nil)

	var openErr *resilience.OpenError
	if apperrors.As(err, &openErr) {
		a.logger.Warn().Dur("retry_in", openErr.Remaining).Msg("market data breaker open")
	}
	return markets, err
}

func (a *Agent) fetchMarket(ctx context.Context, conditionID string) (*models.Market, error) {
	start := time.Now()
	m, err := resilience.ExecuteWithResult(a.breaker, func() (*models.Market, error) {
		return a.markets.GetMarket(ctx, conditionID)
	})
	a.metrics.RecordAPICall(time.Since(start), err != nil)
	return m, err
}

func (a *Agent) recordCycle(ctx context.Context, start time.Time, markets, opportunities, attempted, executed int) {
	if a.store == nil {
		return
	}

	apiCalls, apiErrors := a.metrics.EndCycle()
	if err := a.store.SaveCycle(ctx, &store.CycleRecord{
		Timestamp:       start,
		MarketsScanned:  markets,
		Opportunities:   opportunities,
		TradesAttempted: attempted,
		TradesExecuted:  executed,
		APICalls:        apiCalls,
		APIErrors:       apiErrors,
		Duration:        time.Since(start),
	}); err != nil {
		a.logger.Error().Err(err).Msg("persisting cycle metrics failed")
	}

	snapshot := a.risk.PortfolioSummary()
	if err := a.store.SaveSnapshot(ctx, &snapshot); err != nil {
		a.logger.Error().Err(err).Msg("persisting portfolio snapshot failed")
	}
}

// Run executes scan cycles until the context is cancelled. Failed cycles
// back off before the next attempt instead of aborting the loop.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info().
		Bool("paper", a.cfg.PaperTrading).
		Dur("interval", a.cfg.ScanInterval).
		Msg("starting autonomous trading agent")

	for {
		wait := a.cfg.ScanInterval
		if err := a.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Error().Err(err).Msg("cycle failed")
			wait = errorBackoff
		}

		select {
		case <-ctx.Done():
			a.logger.Info().Msg("agent stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
