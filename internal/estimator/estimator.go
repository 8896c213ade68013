// Package estimator provides probability estimation for market outcomes.
//
// The agent treats estimators as black boxes; it only consumes the returned
// probability to compute an edge against the market-implied price.
package estimator

import (
	"context"

	"polymarket-trader/internal/models"
)

// Estimator estimates the true probability of a market's YES outcome.
type Estimator interface {
	// EstimateYesProbability returns a probability in [0, 1].
	EstimateYesProbability(ctx context.Context, market *models.Market) (float64, error)
}

// MarketPrice is the default estimator. It returns the market-implied
// probability, i.e. the YES token price, which yields zero edge everywhere.
// It is the placeholder onto which a real model is meant to be swapped.
type MarketPrice struct{}

// NewMarketPrice creates the passthrough estimator.
func NewMarketPrice() *MarketPrice {
	return &MarketPrice{}
}

// EstimateYesProbability returns the YES token price.
func (e *MarketPrice) EstimateYesProbability(_ context.Context, market *models.Market) (float64, error) {
	if len(market.Tokens) == 0 {
		return 0.5, nil
	}
	return market.Tokens[0].Price, nil
}
