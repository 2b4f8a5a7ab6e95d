package models

import (
	"time"
)

// Coin is one market record as returned by CoinGecko's /coins/markets endpoint.
// The same shape is persisted as the stored coin for the active generation.
type Coin struct {
	ID                           string    `json:"id"`
	Symbol                       string    `json:"symbol"`
	Name                         string    `json:"name"`
	Image                        string    `json:"image"`
	CurrentPrice                 float64   `json:"current_price"`
	MarketCap                    float64   `json:"market_cap"`
	MarketCapRank                *int      `json:"market_cap_rank"`
	FullyDilutedValuation        *float64  `json:"fully_diluted_valuation,omitempty"`
	TotalVolume                  float64   `json:"total_volume"`
	High24h                      float64   `json:"high_24h"`
	Low24h                       float64   `json:"low_24h"`
	PriceChange24h               float64   `json:"price_change_24h"`
	PriceChangePercentage24h     float64   `json:"price_change_percentage_24h"`
	MarketCapChange24h           float64   `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h float64   `json:"market_cap_change_percentage_24h"`
	CirculatingSupply            float64   `json:"circulating_supply"`
	TotalSupply                  *float64  `json:"total_supply"`
	MaxSupply                    *float64  `json:"max_supply,omitempty"`
	ATH                          float64   `json:"ath"`
	ATHChangePercentage          float64   `json:"ath_change_percentage"`
	ATHDate                      time.Time `json:"ath_date"`
	ATL                          float64   `json:"atl"`
	ATLChangePercentage          float64   `json:"atl_change_percentage"`
	ATLDate                      time.Time `json:"atl_date"`
	LastUpdated                  time.Time `json:"last_updated"`
}

// AlertRecord is the transient result of evaluating one coin. It is never
// persisted server side; a later record for the same coin replaces the earlier one.
type AlertRecord struct {
	CoinID     string    `json:"coin_id"`
	CryptoName string    `json:"crypto_name"`
	Messages   []string  `json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is an account owned by the auth subsystem.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// FavouriteRequest is the body of /favourites/add and /favourites/remove.
type FavouriteRequest struct {
	CoinID string `json:"coinId"`
}

// Credentials is the body of the register and login endpoints.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Event types pushed to stream clients.
const (
	EventRefresh = "refresh"
	EventAlert   = "alert"
)

// Event is one message on the alert and refresh streams.
type Event struct {
	Type       string       `json:"type"`
	Generation int64        `json:"generation,omitempty"`
	Coins      int          `json:"coins,omitempty"`
	Alert      *AlertRecord `json:"alert,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}
