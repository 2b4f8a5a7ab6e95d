package refresh

import "github.com/prometheus/client_golang/prometheus"

var (
	passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_passes_total",
			Help: "Refresh passes by outcome",
		},
		[]string{"outcome"},
	)
	recordsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_records_written_total",
			Help: "Coin records upserted by refresh passes",
		},
	)
	recordsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_records_skipped_total",
			Help: "Coin records skipped after a failed upsert",
		},
	)
	storedCoins = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stored_coins",
			Help: "Coins in the active generation",
		},
	)
)

func init() {
	prometheus.MustRegister(passesTotal)
	prometheus.MustRegister(recordsWrittenTotal)
	prometheus.MustRegister(recordsSkippedTotal)
	prometheus.MustRegister(storedCoins)
}
