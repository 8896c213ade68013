// Package executor provides order submission implementations.
package executor

import (
	"context"

	"polymarket-trader/internal/models"
)

// Executor submits an order and reports the fill.
type Executor interface {
	Execute(ctx context.Context, order *models.Order) (*models.Fill, error)
}
