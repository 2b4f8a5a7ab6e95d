package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryptonite/internal/models"
	"cryptonite/internal/tracing"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultBaseURL is the public CoinGecko v3 API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrFetch wraps every transport, status or decoding failure of the market API.
var ErrFetch = errors.New("market data fetch failed")

// Client reads market snapshots from CoinGecko.
type Client struct {
	client *resty.Client
	apiKey string
}

// NewClient builds a client for baseURL. An empty apiKey sends no key.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{client: client, apiKey: apiKey}
}

// FetchMarkets returns the USD market records for ids, largest market cap first.
// An empty array from the API is returned as an empty slice, not an error.
func (c *Client) FetchMarkets(ctx context.Context, ids []string) ([]models.Coin, error) {
	ctx, span := tracing.Tracer().Start(ctx, "coingecko.FetchMarkets")
	defer span.End()
	span.SetAttributes(attribute.Int("ids", len(ids)))

	params := map[string]string{
		"vs_currency": "usd",
		"ids":         strings.Join(ids, ","),
		"order":       "market_cap_desc",
		"per_page":    strconv.Itoa(max(len(ids), 1)),
	}
	if c.apiKey != "" {
		params["x_cg_demo_api_key"] = c.apiKey
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/coins/markets")
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode())
	}

	var coins []models.Coin
	if err := json.Unmarshal(resp.Body(), &coins); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFetch, err)
	}
	if coins == nil {
		coins = []models.Coin{}
	}
	span.SetAttributes(attribute.Int("coins", len(coins)))
	return coins, nil
}
