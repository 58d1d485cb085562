package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks postings and wallet lock contention.
type LedgerMetrics struct {
	postings *prometheus.CounterVec
	replays  *prometheus.CounterVec
	lockWait prometheus.Histogram
	drift    prometheus.Gauge
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walletledger_ledger_postings_total",
		Help: "Ledger entries written, by direction and status.",
	}, []string{"tx_type", "direction", "status"})
	replays := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walletledger_ledger_replays_total",
		Help: "Posting requests answered from an existing reference.",
	}, []string{"direction", "outcome"})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "walletledger_wallet_lock_wait_seconds",
		Help:    "Time spent acquiring the wallet row lock.",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "walletledger_reconcile_mismatched_wallets",
		Help: "Wallets whose balance disagrees with their entries on the last reconcile run.",
	})
	reg.MustRegister(postings, replays, lockWait, drift)
	return &LedgerMetrics{
		postings: postings,
		replays:  replays,
		lockWait: lockWait,
		drift:    drift,
	}
}

// IncPosting counts a newly written entry.
func (m *LedgerMetrics) IncPosting(txType, direction, status string) {
	if m == nil || m.postings == nil {
		return
	}
	m.postings.WithLabelValues(normalizeLabel(txType), normalizeLabel(direction), normalizeLabel(status)).Inc()
}

// IncReplay counts a request that matched an existing reference.
func (m *LedgerMetrics) IncReplay(direction, outcome string) {
	if m == nil || m.replays == nil {
		return
	}
	m.replays.WithLabelValues(normalizeLabel(direction), normalizeLabel(outcome)).Inc()
}

// ObserveLockWait records how long the wallet lock took.
func (m *LedgerMetrics) ObserveLockWait(d time.Duration) {
	if m == nil || m.lockWait == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

// SetMismatchedWallets publishes the latest reconcile result.
func (m *LedgerMetrics) SetMismatchedWallets(count int) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.Set(float64(count))
}
