package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/models"
)

// Paper simulates order execution without touching the exchange. Orders fill
// immediately at the quoted price.
type Paper struct {
	logger zerolog.Logger

	mu      sync.Mutex
	counter int
}

// NewPaper creates a paper-trading executor.
func NewPaper(logger zerolog.Logger) *Paper {
	return &Paper{
		logger: logger.With().Str("component", "paper-executor").Logger(),
	}
}

// Execute simulates a fill at the order price.
func (p *Paper) Execute(_ context.Context, order *models.Order) (*models.Fill, error) {
	p.mu.Lock()
	p.counter++
	id := fmt.Sprintf("PAPER-%06d", p.counter)
	p.mu.Unlock()

	p.logger.Info().
		Str("order_id", id).
		Str("side", string(order.Side)).
		Float64("amount", order.Amount).
		Float64("price", order.Price).
		Msg("paper trade executed")

	return &models.Fill{
		OrderID:   id,
		TokenID:   order.TokenID,
		Side:      order.Side,
		Amount:    order.Amount,
		Price:     order.Price,
		Timestamp: time.Now(),
		IsPaper:   true,
	}, nil
}
