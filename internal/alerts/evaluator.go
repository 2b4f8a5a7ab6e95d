package alerts

import (
	"fmt"
	"math"
	"time"

	"cryptonite/internal/models"
)

// Evaluator turns a stored coin into human readable alert messages.
// It performs no I/O and is safe for concurrent use.
type Evaluator struct {
	Thresholds Thresholds
}

// NewEvaluator returns an evaluator using t.
func NewEvaluator(t Thresholds) Evaluator {
	return Evaluator{Thresholds: t}
}

// Evaluate runs every check in order and returns the accumulated messages.
func (e Evaluator) Evaluate(c models.Coin) []string {
	messages := []string{}
	messages = e.CheckMarketCap(c, messages)
	messages = e.CheckPrice(c, messages)
	messages = e.CheckATHATL(c, messages)
	messages = e.CheckSupply(c, messages)
	messages = e.CheckVolume(c, messages)
	messages = e.CheckRank(c, messages)
	return messages
}

// Records evaluates coins and returns one record per coin with at least one message.
func (e Evaluator) Records(coins []models.Coin, now time.Time) []models.AlertRecord {
	records := make([]models.AlertRecord, 0, len(coins))
	for _, c := range coins {
		messages := e.Evaluate(c)
		if len(messages) == 0 {
			continue
		}
		records = append(records, models.AlertRecord{
			CoinID:     c.ID,
			CryptoName: c.Name,
			Messages:   messages,
			CreatedAt:  now,
		})
	}
	return records
}

// CheckMarketCap flags a 24h market cap move of at least MarketCapPct percent.
func (e Evaluator) CheckMarketCap(c models.Coin, messages []string) []string {
	pct := c.MarketCapChangePercentage24h
	if math.Abs(pct) < e.Thresholds.MarketCapPct {
		return messages
	}
	return append(messages, fmt.Sprintf(
		"Market Cap Alert: %s's market cap has %s by %s%% ($%s) in the last 24h.",
		c.Name, direction(c.MarketCapChange24h), percent(math.Abs(pct)), dollars(c.MarketCapChange24h),
	))
}

// CheckPrice flags a 24h price move of at least PricePct percent of the current price.
func (e Evaluator) CheckPrice(c models.Coin, messages []string) []string {
	if c.CurrentPrice <= 0 {
		return messages
	}
	if math.Abs(c.PriceChange24h) < c.CurrentPrice*(e.Thresholds.PricePct/100) {
		return messages
	}
	return append(messages, fmt.Sprintf(
		"Price Alert: %s's price has %s by %s%% ($%s) in the last 24h.",
		c.Name, direction(c.PriceChange24h), percent(math.Abs(c.PriceChangePercentage24h)), dollars(c.PriceChange24h),
	))
}

// CheckATHATL flags a drawdown from the all-time high and a recovery from the
// all-time low when they fall inside the configured bands.
func (e Evaluator) CheckATHATL(c models.Coin, messages []string) []string {
	if c.ATH > 0 {
		drop := (c.ATH - c.CurrentPrice) / c.ATH * 100
		if e.Thresholds.ATHDropRange.Contains(drop) {
			messages = append(messages, fmt.Sprintf(
				"ATH Alert: %s has dropped %s%% from its all-time high of $%s.",
				c.Name, percent(drop), plain(c.ATH),
			))
		}
	}
	if c.ATL > 0 {
		recovery := (c.CurrentPrice - c.ATL) / c.ATL * 100
		if e.Thresholds.ATLRecoveryRange.Contains(recovery) {
			messages = append(messages, fmt.Sprintf(
				"ATL Alert: %s has recovered %s%% from its all-time low of $%s.",
				c.Name, percent(recovery), plain(c.ATL),
			))
		}
	}
	return messages
}

// CheckSupply always reports the circulating share when both supplies are known.
func (e Evaluator) CheckSupply(c models.Coin, messages []string) []string {
	if c.TotalSupply == nil || *c.TotalSupply == 0 || c.CirculatingSupply == 0 {
		return messages
	}
	pct := c.CirculatingSupply / *c.TotalSupply * 100
	return append(messages, fmt.Sprintf(
		"Supply Alert: %s has %s%% of its total supply in circulation.",
		c.Name, percent(pct),
	))
}

// CheckVolume flags 24h volume above VolumePct percent of market cap.
func (e Evaluator) CheckVolume(c models.Coin, messages []string) []string {
	if c.MarketCap == 0 {
		return messages
	}
	pct := c.TotalVolume / c.MarketCap * 100
	if pct <= e.Thresholds.VolumePct {
		return messages
	}
	return append(messages, fmt.Sprintf(
		"Volume Alert: %s is experiencing high trading activity, with current trading making up %s%% of its market cap.",
		c.Name, percent(pct),
	))
}

// CheckRank always reports the market cap rank when it is known.
func (e Evaluator) CheckRank(c models.Coin, messages []string) []string {
	if c.MarketCapRank == nil || *c.MarketCapRank == 0 {
		return messages
	}
	return append(messages, fmt.Sprintf(
		"Rank Alert: %s is currently ranked #%d by market cap on the Exchange.",
		c.Name, *c.MarketCapRank,
	))
}
