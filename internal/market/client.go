// Package market provides the Gamma API client for market discovery.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"polymarket-trader/internal/config"
	apperrors "polymarket-trader/internal/errors"
	"polymarket-trader/internal/models"
	"polymarket-trader/pkg/utils"
)

// Client fetches market listings from the Gamma API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      utils.RetryConfig
	logger     zerolog.Logger
}

// NewClient creates a Gamma API client from the API configuration.
func NewClient(cfg config.APIConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.GammaHost,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		retry: utils.RetryConfig{
			MaxAttempts:   cfg.MaxRetries,
			InitialDelay:  cfg.RetryDelay,
			MaxDelay:      10 * cfg.RetryDelay,
			BackoffFactor: 2.0,
		},
		logger: logger.With().Str("component", "market").Logger(),
	}
}

// GetMarkets fetches up to limit active markets.
func (c *Client) GetMarkets(ctx context.Context, limit int) ([]models.Market, error) {
	endpoint := fmt.Sprintf("%s/markets?%s", c.baseURL, url.Values{
		"limit":  {strconv.Itoa(limit)},
		"active": {"true"},
	}.Encode())

	markets, err := utils.RetryWithResult(ctx, c.retry, func() ([]models.Market, error) {
		var out []models.Market
		if err := c.getJSON(ctx, endpoint, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info().Int("count", len(markets)).Msg("fetched active markets")
	return markets, nil
}

// GetMarket fetches a single market by its condition id.
func (c *Client) GetMarket(ctx context.Context, conditionID string) (*models.Market, error) {
	endpoint := fmt.Sprintf("%s/markets/%s", c.baseURL, url.PathEscape(conditionID))

	return utils.RetryWithResult(ctx, c.retry, func() (*models.Market, error) {
		var out models.Market
		if err := c.getJSON(ctx, endpoint, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperrors.NewMarketError(endpoint, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewMarketError(endpoint, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewMarketError(endpoint, resp.StatusCode, apperrors.ErrMarketNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewMarketError(endpoint, resp.StatusCode, fmt.Errorf("unexpected status: %s", body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return apperrors.NewMarketError(endpoint, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
