package alerts

// Range is an inclusive percentage band.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Thresholds holds every constant the evaluator compares against.
type Thresholds struct {
	MarketCapPct     float64 `yaml:"market_cap_pct" json:"market_cap_pct"`
	PricePct         float64 `yaml:"price_pct" json:"price_pct"`
	ATHDropRange     Range   `yaml:"ath_drop_range" json:"ath_drop_range"`
	ATLRecoveryRange Range   `yaml:"atl_recovery_range" json:"atl_recovery_range"`
	VolumePct        float64 `yaml:"volume_pct" json:"volume_pct"`
}

// DefaultThresholds returns the thresholds the service ships with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MarketCapPct:     10,
		PricePct:         2,
		ATHDropRange:     Range{Min: 20, Max: 90},
		ATLRecoveryRange: Range{Min: 50, Max: 500},
		VolumePct:        10,
	}
}
