package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketsBody = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png","current_price":64000.5,
   "market_cap":1260000000000,"market_cap_rank":1,"total_volume":30000000000,"high_24h":65000,"low_24h":63000,
   "price_change_24h":-500.25,"price_change_percentage_24h":-0.77,"market_cap_change_24h":-9000000000,
   "market_cap_change_percentage_24h":-0.71,"circulating_supply":19700000,"total_supply":21000000,
   "ath":73738,"atl":67.81,"last_updated":"2024-05-01T12:00:00.000Z"},
  {"id":"tether","symbol":"usdt","name":"Tether","image":"https://img/usdt.png","current_price":1,
   "market_cap":110000000000,"market_cap_rank":3,"total_volume":50000000000,"total_supply":null,
   "ath":1.32,"atl":0.57,"last_updated":"2024-05-01T11:59:00.000Z"}
]`

func TestFetchMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "usd", q.Get("vs_currency"))
		assert.Equal(t, "bitcoin,tether", q.Get("ids"))
		assert.Equal(t, "market_cap_desc", q.Get("order"))
		assert.Equal(t, "demo-key", q.Get("x_cg_demo_api_key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(marketsBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "demo-key", 5*time.Second)
	coins, err := c.FetchMarkets(context.Background(), []string{"bitcoin", "tether"})
	require.NoError(t, err)
	require.Len(t, coins, 2)

	btc := coins[0]
	assert.Equal(t, "bitcoin", btc.ID)
	assert.Equal(t, 64000.5, btc.CurrentPrice)
	require.NotNil(t, btc.MarketCapRank)
	assert.Equal(t, 1, *btc.MarketCapRank)
	require.NotNil(t, btc.TotalSupply)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), btc.LastUpdated.UTC())

	assert.Nil(t, coins[1].TotalSupply)
}

func TestFetchMarkets_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("x_cg_demo_api_key"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	coins, err := NewClient(srv.URL, "", time.Second).FetchMarkets(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.NotNil(t, coins)
	assert.Empty(t, coins)
}

func TestFetchMarkets_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).FetchMarkets(context.Background(), []string{"bitcoin"})
			assert.ErrorIs(t, err, ErrFetch)
		})
	}
}

func TestFetchMarkets_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", time.Second).FetchMarkets(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, ErrFetch)
}
