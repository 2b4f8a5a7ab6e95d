package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cryptonite/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// apiClient talks to the public routes of the API.
type apiClient struct {
	base   string
	client *resty.Client
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	base = strings.TrimRight(base, "/")
	return &apiClient{
		base:   base,
		client: resty.New().SetBaseURL(base).SetTimeout(timeout),
	}
}

func (a *apiClient) coins(ctx context.Context) ([]models.Coin, error) {
	var coins []models.Coin
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&coins).
		Get("/api/cryptocurrencies")
	if err != nil {
		return nil, fmt.Errorf("fetch coins: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch coins: %s", resp.Status())
	}
	return coins, nil
}

// dialStream opens the websocket event stream.
func (a *apiClient) dialStream(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(a.base)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/stream"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return conn, nil
}
