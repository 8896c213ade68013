package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	"polymarket-trader/internal/metrics"
	"polymarket-trader/internal/models"
	"polymarket-trader/internal/resilience"
	"polymarket-trader/internal/risk"
	"polymarket-trader/internal/store"
)

type fakeSource struct {
	markets  []models.Market
	err      error
	listCall int
}

func (f *fakeSource) GetMarkets(ctx context.Context, limit int) ([]models.Market, error) {
	f.listCall++
	return f.markets, f.err
}

func (f *fakeSource) GetMarket(ctx context.Context, conditionID string) (*models.Market, error) {
	for i := range f.markets {
		if f.markets[i].ConditionID == conditionID {
			return &f.markets[i], nil
		}
	}
	return nil, errors.New("not found")
}

type fakeEstimator struct {
	estimates map[string]float64
	err       error
}

func (f *fakeEstimator) EstimateYesProbability(ctx context.Context, m *models.Market) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.estimates[m.ConditionID], nil
}

type fakeExecutor struct {
	orders []models.Order
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, order *models.Order) (*models.Fill, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.orders = append(f.orders, *order)
	return &models.Fill{
		OrderID:   "FAKE-1",
		TokenID:   order.TokenID,
		Side:      order.Side,
		Amount:    order.Amount,
		Price:     order.Price,
		Timestamp: time.Now(),
		IsPaper:   true,
	}, nil
}

type fakeStore struct {
	store.DataStore
	trades    []models.Trade
	cycles    []store.CycleRecord
	snapshots []models.PortfolioSummary
}

func (f *fakeStore) LogTrade(ctx context.Context, trade *models.Trade) error {
	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakeStore) SaveCycle(ctx context.Context, cycle *store.CycleRecord) error {
	f.cycles = append(f.cycles, *cycle)
	return nil
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, snapshot *models.PortfolioSummary) error {
	f.snapshots = append(f.snapshots, *snapshot)
	return nil
}

func binaryMarket(id string, liquidity, yesPrice float64) models.Market {
	return models.Market{
		ConditionID: id,
		Question:    "Question " + id,
		Liquidity:   liquidity,
		Active:      true,
		Tokens: []models.Token{
			{TokenID: id + "-yes", Outcome: "Yes", Price: yesPrice},
			{TokenID: id + "-no", Outcome: "No", Price: 1 - yesPrice},
		},
	}
}

type testHarness struct {
	agent    *Agent
	source   *fakeSource
	executor *fakeExecutor
	store    *fakeStore
	risk     *risk.Manager
	breaker  *resilience.Breaker
}

func newTestHarness(t *testing.T, est *fakeEstimator, markets ...models.Market) *testHarness {
	t.Helper()

	cfg := config.Default()
	cfg.Trading.RateLimitDelay = 0
	cfg.Trading.TopOpportunities = 2

	rm := risk.NewManager(cfg.Trading, zerolog.Nop())
	rm.SetInitialBalance(cfg.Trading.InitialBalance)

	source := &fakeSource{markets: markets}
	exec := &fakeExecutor{}
	st := &fakeStore{}
	breaker := resilience.NewBreaker("gamma", resilience.BreakerConfig{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
	})

	a := New(Options{
		Config:    cfg,
		Logger:    zerolog.Nop(),
		Risk:      rm,
		Markets:   source,
		Breaker:   breaker,
		Estimator: est,
		Executor:  exec,
		Metrics:   metrics.NewCollector(),
		Store:     st,
	})

	return &testHarness{agent: a, source: source, executor: exec, store: st, risk: rm, breaker: breaker}
}

func TestAnalyzeMarketFilters(t *testing.T) {
	est := &fakeEstimator{estimates: map[string]float64{"liquid": 0.70}}
	h := newTestHarness(t, est)

	tests := []struct {
		name   string
		market models.Market
	}{
		{"below liquidity floor", binaryMarket("thin", 500, 0.50)},
		{"single token", models.Market{ConditionID: "one", Liquidity: 50000,
			Tokens: []models.Token{{TokenID: "t", Price: 0.5}}}},
		{"degenerate price", binaryMarket("pinned", 50000, 1.0)},
		{"edge below threshold", func() models.Market {
			m := binaryMarket("liquid", 50000, 0.65) // estimate 0.70, edge 0.05
			return m
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := h.agent.AnalyzeMarket(context.Background(), &tt.market); ok {
				t.Error("expected market to be filtered out")
			}
		})
	}
}

func TestAnalyzeMarketEstimatorError(t *testing.T) {
	h := newTestHarness(t, &fakeEstimator{err: errors.New("model unavailable")})

	m := binaryMarket("m1", 50000, 0.50)
	if _, ok := h.agent.AnalyzeMarket(context.Background(), &m); ok {
		t.Error("expected no opportunity when the estimate fails")
	}
}

func TestAnalyzeMarketPositiveEdgeBuys(t *testing.T) {
	est := &fakeEstimator{estimates: map[string]float64{"m1": 0.70}}
	h := newTestHarness(t, est)

	m := binaryMarket("m1", 50000, 0.50)
	opp, ok := h.agent.AnalyzeMarket(context.Background(), &m)
	if !ok {
		t.Fatal("expected an opportunity")
	}
	if opp.Side != models.OrderSideBuy {
		t.Errorf("side = %s, want BUY", opp.Side)
	}
	if !floatNear(opp.Edge, 0.20) {
		t.Errorf("edge = %v, want 0.20", opp.Edge)
	}
	if !floatNear(opp.Confidence, 0.40) {
		t.Errorf("confidence = %v, want 0.40 (twice the edge)", opp.Confidence)
	}
	if opp.RecommendedSize < 10 || opp.RecommendedSize > 100 {
		t.Errorf("size = %v outside position bounds", opp.RecommendedSize)
	}
	if opp.ExpectedValue <= 0 {
		t.Errorf("expected positive EV, got %v", opp.ExpectedValue)
	}
}

func TestAnalyzeMarketNegativeEdgeSells(t *testing.T) {
	est := &fakeEstimator{estimates: map[string]float64{"m1": 0.30}}
	h := newTestHarness(t, est)

	m := binaryMarket("m1", 50000, 0.50)
	opp, ok := h.agent.AnalyzeMarket(context.Background(), &m)
	if !ok {
		t.Fatal("expected an opportunity")
	}
	if opp.Side != models.OrderSideSell {
		t.Errorf("side = %s, want SELL", opp.Side)
	}
	if opp.Edge >= 0 {
		t.Errorf("edge = %v, want negative", opp.Edge)
	}
}

func TestConfidenceCapsAtOne(t *testing.T) {
	est := &fakeEstimator{estimates: map[string]float64{"m1": 0.95}}
	h := newTestHarness(t, est)

	m := binaryMarket("m1", 50000, 0.10) // edge 0.85, twice that caps at 1
	opp, ok := h.agent.AnalyzeMarket(context.Background(), &m)
	if !ok {
		t.Fatal("expected an opportunity")
	}
	if opp.Confidence != 1 {
		t.Errorf("confidence = %v, want capped at 1", opp.Confidence)
	}
}

func TestRunCycleExecutesBestOpportunitiesFirst(t *testing.T) {
	// Three opportunities, TopOpportunities is 2: the two highest-EV
	// trades execute, the weakest is left on the table.
	est := &fakeEstimator{estimates: map[string]float64{
		"small": 0.65, // edge 0.15
		"mid":   0.75, // edge 0.25
		"big":   0.90, // edge 0.40
	}}
	h := newTestHarness(t, est,
		binaryMarket("small", 50000, 0.50),
		binaryMarket("mid", 50000, 0.50),
		binaryMarket("big", 50000, 0.50),
	)

	if err := h.agent.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(h.executor.orders) != 2 {
		t.Fatalf("executed %d orders, want 2", len(h.executor.orders))
	}
	if h.executor.orders[0].MarketID != "big" {
		t.Errorf("first order market = %s, want big", h.executor.orders[0].MarketID)
	}
	if h.executor.orders[1].MarketID != "mid" {
		t.Errorf("second order market = %s, want mid", h.executor.orders[1].MarketID)
	}

	summary := h.risk.PortfolioSummary()
	if summary.OpenPositions != 2 {
		t.Errorf("open positions = %d, want 2", summary.OpenPositions)
	}

	if len(h.store.trades) != 2 {
		t.Errorf("persisted trades = %d, want 2", len(h.store.trades))
	}
	// Paper flag from the fill reaches both the ledger and the store.
	for _, trade := range h.risk.Trades() {
		if !trade.IsPaper {
			t.Errorf("ledger trade %s lost the paper flag", trade.ID)
		}
	}
	for _, trade := range h.store.trades {
		if !trade.IsPaper {
			t.Errorf("persisted trade %s lost the paper flag", trade.ID)
		}
	}
	if len(h.store.cycles) != 1 {
		t.Fatalf("persisted cycles = %d, want 1", len(h.store.cycles))
	}
	cycle := h.store.cycles[0]
	if cycle.MarketsScanned != 3 || cycle.Opportunities != 3 || cycle.TradesExecuted != 2 {
		t.Errorf("cycle record = %+v", cycle)
	}
	if len(h.store.snapshots) != 1 {
		t.Errorf("persisted snapshots = %d, want 1", len(h.store.snapshots))
	}
}

func TestRunCycleEmptyMarkets(t *testing.T) {
	h := newTestHarness(t, &fakeEstimator{})

	if err := h.agent.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle with no markets: %v", err)
	}
	if len(h.executor.orders) != 0 {
		t.Errorf("executed %d orders, want 0", len(h.executor.orders))
	}
}

func TestRunCycleFetchFailure(t *testing.T) {
	h := newTestHarness(t, &fakeEstimator{})
	h.source.err = errors.New("gamma down")

	if err := h.agent.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error when market fetch fails")
	}
}

func TestRunCycleFailsFastWhileBreakerOpen(t *testing.T) {
	h := newTestHarness(t, &fakeEstimator{})
	h.source.err = errors.New("gamma down")

	// Trip the breaker, then restore the source: the next cycle must
	// still fail fast without touching the API.
	h.agent.RunCycle(context.Background())
	h.agent.RunCycle(context.Background())
	callsWhileTripping := h.source.listCall

	h.source.err = nil
	h.source.markets = []models.Market{binaryMarket("m1", 50000, 0.50)}

	err := h.agent.RunCycle(context.Background())
	var openErr *resilience.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected *OpenError, got %v", err)
	}
	if h.source.listCall != callsWhileTripping {
		t.Error("source was invoked while the breaker was open")
	}
}

func TestRunCycleGateBlocksExecution(t *testing.T) {
	est := &fakeEstimator{estimates: map[string]float64{"m1": 0.70}}
	h := newTestHarness(t, est, binaryMarket("m1", 50000, 0.50))

	// Occupy the market's single position slot; the gate must refuse a
	// second trade in the same market.
	h.risk.RecordTrade("m1", "held", "m1-yes", models.OrderSideBuy, 50, 0.5, models.TradeStatusOpen, true)

	if err := h.agent.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(h.executor.orders) != 0 {
		t.Errorf("executed %d orders, want 0 (gate should block)", len(h.executor.orders))
	}
}

func TestRunCycleExecutionFailureLeavesLedgerUntouched(t *testing.T) {
	est := &fakeEstimator{estimates: map[string]float64{"m1": 0.70}}
	h := newTestHarness(t, est, binaryMarket("m1", 50000, 0.50))
	h.executor.err = errors.New("order rejected")

	if err := h.agent.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	summary := h.risk.PortfolioSummary()
	if summary.OpenPositions != 0 || summary.TotalTrades != 0 {
		t.Errorf("ledger mutated by failed execution: %+v", summary)
	}
	if len(h.store.trades) != 0 {
		t.Errorf("persisted trades = %d, want 0", len(h.store.trades))
	}
}

func floatNear(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}
