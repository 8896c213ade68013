package models

import "time"

// Trade is an immutable record of an attempted fill. Once recorded, only the
// status and realized PnL change, and only when the position is closed.
type Trade struct {
	ID          string
	Timestamp   time.Time
	MarketID    string
	MarketTitle string
	TokenID     string
	Side        OrderSide
	Amount      float64
	Price       float64
	PnL         *float64
	Status      TradeStatus
	IsPaper     bool
}

// Position represents current open exposure in one market.
type Position struct {
	MarketID      string
	MarketTitle   string
	TokenID       string
	Side          OrderSide
	Amount        float64
	EntryPrice    float64
	CurrentPrice  float64
	UnrealizedPnL float64
	OpenedAt      time.Time
}

// PortfolioSummary is a read-only snapshot of the ledger's derived values.
type PortfolioSummary struct {
	CurrentBalance    float64
	TotalPnL          float64
	DailyPnL          float64
	WeeklyPnL         float64
	Drawdown          float64
	PeakBalance       float64
	OpenPositions     int
	TotalTrades       int
	ConsecutiveLosses int
	IsHalted          bool
}
