// Package models defines the core data types shared across the application.
package models

import "time"

// OrderSide represents the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// TradeStatus represents the lifecycle status of a trade.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
	TradeStatusFailed TradeStatus = "failed"
)

// Token represents one outcome token of a binary market.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price,string"`
}

// Market represents a prediction market listing from the Gamma API.
type Market struct {
	ConditionID string  `json:"condition_id"`
	Question    string  `json:"question"`
	Liquidity   float64 `json:"liquidity,string"`
	Volume      float64 `json:"volume,string"`
	Active      bool    `json:"active"`
	Closed      bool    `json:"closed"`
	EndDate     string  `json:"end_date_iso"`
	Tokens      []Token `json:"tokens"`
}

// YesPrice returns the price of the YES token, or 0 if the market has no tokens.
func (m *Market) YesPrice() float64 {
	if len(m.Tokens) == 0 {
		return 0
	}
	return m.Tokens[0].Price
}

// Opportunity is a tradable candidate produced by market analysis.
type Opportunity struct {
	MarketID        string
	Title           string
	TokenID         string
	Side            OrderSide
	Edge            float64
	Confidence      float64
	Price           float64
	RecommendedSize float64
	ExpectedValue   float64
}

// Order is the instruction handed to an executor.
type Order struct {
	MarketID string
	TokenID  string
	Side     OrderSide
	Amount   float64 // USDC
	Price    float64
}

// Fill is the result of a successfully executed order.
type Fill struct {
	OrderID   string
	TokenID   string
	Side      OrderSide
	Amount    float64
	Price     float64
	Timestamp time.Time
	IsPaper   bool
}
