package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/models"
)

// CLOB submits fill-or-kill market orders to the CLOB REST API.
type CLOB struct {
	baseURL    string
	apiKey     string
	chainID    int
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewCLOB creates a live executor against the configured CLOB host. The key
// is the API credential derived from the wallet's private key.
func NewCLOB(cfg config.APIConfig, apiKey string, logger zerolog.Logger) *CLOB {
	return &CLOB{
		baseURL: cfg.CLOBHost,
		apiKey:  apiKey,
		chainID: cfg.ChainID,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.With().Str("component", "clob-executor").Logger(),
	}
}

type orderRequest struct {
	TokenID   string  `json:"token_id"`
	Side      string  `json:"side"`
	Amount    float64 `json:"amount"`
	OrderType string  `json:"order_type"`
	ChainID   int     `json:"chain_id"`
}

type orderResponse struct {
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// Execute posts a fill-or-kill market order.
func (c *CLOB) Execute(ctx context.Context, order *models.Order) (*models.Fill, error) {
	body, err := json.Marshal(orderRequest{
		TokenID:   order.TokenID,
		Side:      string(order.Side),
		Amount:    order.Amount,
		OrderType: "FOK",
		ChainID:   c.chainID,
	})
	if err != nil {
		return nil, apperrors.NewExecutionError(order.MarketID, order.TokenID, string(order.Side), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewExecutionError(order.MarketID, order.TokenID, string(order.Side), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewExecutionError(order.MarketID, order.TokenID, string(order.Side), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewExecutionError(order.MarketID, order.TokenID, string(order.Side),
			fmt.Errorf("order rejected, status %d: %s", resp.StatusCode, raw))
	}

	var result orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewExecutionError(order.MarketID, order.TokenID, string(order.Side),
			fmt.Errorf("decoding order response: %w", err))
	}
	if result.Error != "" {
		return nil, apperrors.NewExecutionError(order.MarketID, order.TokenID, string(order.Side),
			fmt.Errorf("%s", result.Error))
	}

	c.logger.Info().
		Str("order_id", result.OrderID).
		Str("status", result.Status).
		Msg("live order executed")

	return &models.Fill{
		OrderID:   result.OrderID,
		TokenID:   order.TokenID,
		Side:      order.Side,
		Amount:    order.Amount,
		Price:     order.Price,
		Timestamp: time.Now(),
	}, nil
}
