package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cryptonite/internal/alerts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("COIN_IDS", "")
	t.Setenv("REFRESH_INTERVAL", "")
	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("STORE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultCoinIDs, cfg.CoinIDs)
	assert.Equal(t, alerts.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cryptonite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
coins: [bitcoin, solana]
refresh_interval: 5m
thresholds:
  market_cap_pct: 5
  price_pct: 1
  ath_drop_range: {min: 10, max: 80}
  atl_recovery_range: {min: 25, max: 400}
  volume_pct: 15
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("COIN_IDS", "")
	t.Setenv("REFRESH_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "solana"}, cfg.CoinIDs)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, alerts.Thresholds{
		MarketCapPct:     5,
		PricePct:         1,
		ATHDropRange:     alerts.Range{Min: 10, Max: 80},
		ATLRecoveryRange: alerts.Range{Min: 25, Max: 400},
		VolumePct:        15,
	}, cfg.Thresholds)
}

func TestLoad_CoinIDsFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("COIN_IDS", " bitcoin, ,ethereum ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, cfg.CoinIDs)
}

func TestLoad_OriginsAndProxies(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.CORSOrigins)
	assert.Empty(t, cfg.TrustedProxies)

	t.Setenv("CORS_ORIGINS", "https://app.example.com, http://localhost:3000")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("FETCH_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("STORE_DRIVER", "mongo")
	_, err = Load()
	assert.Error(t, err)
}
