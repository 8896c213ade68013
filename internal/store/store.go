// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"polymarket-trader/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Trades
	LogTrade(ctx context.Context, trade *models.Trade) error
	UpdateTradeOutcome(ctx context.Context, tradeID string, status models.TradeStatus, pnl float64) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// Portfolio snapshots
	SaveSnapshot(ctx context.Context, snapshot *models.PortfolioSummary) error

	// Cycle metrics
	SaveCycle(ctx context.Context, cycle *CycleRecord) error

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	MarketID  string
	Side      string
	Status    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// CycleRecord captures one scan cycle for later analysis.
type CycleRecord struct {
	Timestamp       time.Time
	MarketsScanned  int
	Opportunities   int
	TradesAttempted int
	TradesExecuted  int
	APICalls        int
	APIErrors       int
	Duration        time.Duration
}
