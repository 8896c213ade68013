// Package risk provides the capital ledger and trade admission gate.
//
// The Manager is the single source of truth for positions, realized P&L and
// the trading-halt state machine. It performs no I/O; every operation is
// in-memory arithmetic guarded by one mutex, so it is safe to call from the
// agent loop and from CLI status reads concurrently.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/models"
)

// DefaultHaltDuration is how long a tripped loss or drawdown limit suspends
// trade admission.
const DefaultHaltDuration = time.Hour

// Manager tracks trades, positions and P&L, and decides whether a proposed
// trade may proceed.
type Manager struct {
	cfg    config.TradingConfig
	logger zerolog.Logger

	mu        sync.Mutex
	trades    []models.Trade
	positions map[string]*models.Position

	dailyPnL  map[string]float64 // date -> pnl
	weeklyPnL map[string]float64 // year-week -> pnl
	totalPnL  float64

	initialBalance float64
	peakBalance    float64

	consecutiveLosses int
	halted            bool
	haltUntil         time.Time
	haltDuration      time.Duration

	// now is injected for deterministic day/week bucketing in tests.
	now func() time.Time
}

// NewManager creates a risk manager for the given trading configuration.
// The configuration must already be validated.
func NewManager(cfg config.TradingConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:          cfg,
		logger:       logger.With().Str("component", "risk").Logger(),
		positions:    make(map[string]*models.Position),
		dailyPnL:     make(map[string]float64),
		weeklyPnL:    make(map[string]float64),
		haltDuration: DefaultHaltDuration,
		now:          time.Now,
	}
}

// SetClock replaces the manager's clock. Intended for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetInitialBalance sets the starting balance used for drawdown and
// concentration calculations.
func (m *Manager) SetInitialBalance(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialBalance = balance
	m.peakBalance = balance
	m.logger.Info().Float64("balance", balance).Msg("initial balance set")
}

// CanTrade checks whether a trade of the given amount in the given market is
// allowed. The checks run in a fixed order and the first failure wins. Loss
// and drawdown breaches additionally trip the halt, which persists across
// calls until its expiry.
func (m *Manager) CanTrade(amount float64, marketID string) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if m.halted {
		if now.Before(m.haltUntil) {
			return false, fmt.Sprintf("Trading halted until %s", m.haltUntil.Format(time.RFC3339))
		}
		m.halted = false
		m.haltUntil = time.Time{}
		m.logger.Info().Msg("trading halt lifted")
	}

	today := dayKey(now)
	if abs(m.dailyPnL[today]) >= m.cfg.MaxDailyLoss {
		m.haltTrading("daily loss limit reached")
		return false, fmt.Sprintf("Daily loss limit reached: $%.2f", abs(m.dailyPnL[today]))
	}

	week := weekKey(now)
	if abs(m.weeklyPnL[week]) >= m.cfg.MaxWeeklyLoss {
		m.haltTrading("weekly loss limit reached")
		return false, fmt.Sprintf("Weekly loss limit reached: $%.2f", abs(m.weeklyPnL[week]))
	}

	currentBalance := m.initialBalance + m.totalPnL
	if currentBalance > m.peakBalance {
		m.peakBalance = currentBalance
	}
	drawdown := (m.peakBalance - currentBalance) / m.peakBalance
	if drawdown >= m.cfg.MaxDrawdownPercent {
		m.haltTrading("maximum drawdown reached")
		return false, fmt.Sprintf("Max drawdown reached: %.2f%%", drawdown*100)
	}

	if len(m.positions) >= m.cfg.MaxTotalPositions {
		return false, fmt.Sprintf("Max total positions reached: %d", len(m.positions))
	}

	marketPositions := 0
	for _, p := range m.positions {
		if p.MarketID == marketID {
			marketPositions++
		}
	}
	if marketPositions >= m.cfg.MaxPositionsPerMarket {
		return false, fmt.Sprintf("Max positions per market reached for %s", marketID)
	}

	var totalExposure float64
	for _, p := range m.positions {
		totalExposure += p.Amount
	}
	if totalExposure > 0 {
		denominator := currentBalance
		if denominator <= 0 {
			denominator = m.initialBalance
		}
		concentration := (amount + totalExposure) / denominator
		if concentration > m.cfg.MaxPositionConcentration {
			return false, fmt.Sprintf("Position concentration too high: %.2f%%", concentration*100)
		}
	}

	if amount < m.cfg.MinPositionSize {
		return false, fmt.Sprintf("Position size too small: $%.2f", amount)
	}
	if amount > m.cfg.MaxPositionSize {
		return false, fmt.Sprintf("Position size too large: $%.2f", amount)
	}

	return true, "OK"
}

// PositionSize computes a position size from the estimated edge using the
// Kelly criterion, scaled by the configured Kelly fraction and the caller's
// confidence in [0,1]. The result is always clamped into
// [MinPositionSize, MaxPositionSize]; the minimum clamp is a deliberate
// floor, so a zero Kelly fraction still trades the minimum size.
func (m *Manager) PositionSize(edge, price, confidence float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.UseKellyCriterion {
		return m.cfg.MaxPositionSize
	}

	// Kelly: f = (b*p - q) / b, with b = payoff odds, p = win probability.
	var winProb, odds float64
	if edge > 0 { // buying YES
		winProb = price + edge
		if price > 0 {
			odds = (1 - price) / price
		}
	} else { // buying NO
		winProb = 1 - (price + edge)
		if price < 1 {
			odds = price / (1 - price)
		}
	}
	lossProb := 1 - winProb

	var kelly float64
	if odds > 0 {
		kelly = (odds*winProb - lossProb) / odds
	}
	if kelly < 0 {
		kelly = 0
	}
	kelly *= m.cfg.KellyFraction * confidence

	currentBalance := m.initialBalance + m.totalPnL
	size := kelly * currentBalance

	if size < m.cfg.MinPositionSize {
		size = m.cfg.MinPositionSize
	}
	if size > m.cfg.MaxPositionSize {
		size = m.cfg.MaxPositionSize
	}

	m.logger.Debug().
		Float64("edge", edge).
		Float64("price", price).
		Float64("kelly", kelly).
		Float64("size", size).
		Msg("kelly position sizing")

	return size
}

// RecordTrade appends a trade to history and, for an open trade, creates or
// replaces the position for its market.
func (m *Manager) RecordTrade(marketID, marketTitle, tokenID string, side models.OrderSide, amount, price float64, status models.TradeStatus, isPaper bool) models.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	trade := models.Trade{
		ID:          fmt.Sprintf("T%d-%d", now.UnixNano(), len(m.trades)+1),
		Timestamp:   now,
		MarketID:    marketID,
		MarketTitle: marketTitle,
		TokenID:     tokenID,
		Side:        side,
		Amount:      amount,
		Price:       price,
		Status:      status,
		IsPaper:     isPaper,
	}
	m.trades = append(m.trades, trade)

	if status == models.TradeStatusOpen {
		m.positions[marketID] = &models.Position{
			MarketID:     marketID,
			MarketTitle:  marketTitle,
			TokenID:      tokenID,
			Side:         side,
			Amount:       amount,
			EntryPrice:   price,
			CurrentPrice: price,
			OpenedAt:     now,
		}
	}

	m.logger.Info().
		Str("market", marketTitle).
		Str("side", string(side)).
		Float64("amount", amount).
		Float64("price", price).
		Msg("trade recorded")

	return trade
}

// UpdatePosition recomputes unrealized P&L for the market's position from the
// latest observed price. It is a no-op if no position is open.
func (m *Manager) UpdatePosition(marketID string, currentPrice float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	position, ok := m.positions[marketID]
	if !ok {
		return
	}

	position.CurrentPrice = currentPrice
	if position.Side == models.OrderSideBuy {
		position.UnrealizedPnL = (currentPrice - position.EntryPrice) * position.Amount
	} else {
		position.UnrealizedPnL = (position.EntryPrice - currentPrice) * position.Amount
	}
}

// ClosePosition realizes P&L for the market's open position and removes it.
// Returns ErrPositionNotFound when there is nothing to close; callers are
// expected to branch on it, it is not fatal.
func (m *Manager) ClosePosition(marketID string, exitPrice float64, reason string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	position, ok := m.positions[marketID]
	if !ok {
		return 0, fmt.Errorf("closing %s: %w", marketID, apperrors.ErrPositionNotFound)
	}

	var pnl float64
	if position.Side == models.OrderSideBuy {
		pnl = (exitPrice - position.EntryPrice) * position.Amount
	} else {
		pnl = (position.EntryPrice - exitPrice) * position.Amount
	}

	now := m.now()
	m.totalPnL += pnl
	m.dailyPnL[dayKey(now)] += pnl
	m.weeklyPnL[weekKey(now)] += pnl

	if pnl < 0 {
		m.consecutiveLosses++
	} else {
		m.consecutiveLosses = 0
	}

	delete(m.positions, marketID)

	m.logger.Info().
		Str("market", position.MarketTitle).
		Float64("pnl", pnl).
		Str("reason", reason).
		Msg("position closed")

	return pnl, nil
}

// PortfolioSummary returns a snapshot of derived ledger values. It never
// mutates state.
func (m *Manager) PortfolioSummary() models.PortfolioSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	currentBalance := m.initialBalance + m.totalPnL
	var drawdown float64
	if m.peakBalance > 0 {
		drawdown = (m.peakBalance - currentBalance) / m.peakBalance
	}

	now := m.now()
	return models.PortfolioSummary{
		CurrentBalance:    currentBalance,
		TotalPnL:          m.totalPnL,
		DailyPnL:          m.dailyPnL[dayKey(now)],
		WeeklyPnL:         m.weeklyPnL[weekKey(now)],
		Drawdown:          drawdown,
		PeakBalance:       m.peakBalance,
		OpenPositions:     len(m.positions),
		TotalTrades:       len(m.trades),
		ConsecutiveLosses: m.consecutiveLosses,
		IsHalted:          m.halted,
	}
}

// Positions returns a copy of the currently open positions.
func (m *Manager) Positions() []models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	return out
}

// Trades returns a copy of the trade history.
func (m *Manager) Trades() []models.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

// haltTrading suspends admission until now + haltDuration.
// Callers must hold m.mu.
func (m *Manager) haltTrading(reason string) {
	m.halted = true
	m.haltUntil = m.now().Add(m.haltDuration)
	m.logger.Warn().
		Str("reason", reason).
		Time("until", m.haltUntil).
		Msg("trading halted")
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%d", year, week)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
