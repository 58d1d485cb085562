package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PurchaseMetrics tracks purchase outcomes and provider behavior.
type PurchaseMetrics struct {
	orders          *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	verifications   *prometheus.CounterVec
	fundings        *prometheus.CounterVec
}

// NewPurchaseMetrics registers the purchase metrics on the provided registerer.
func NewPurchaseMetrics(reg prometheus.Registerer) *PurchaseMetrics {
	if reg == nil {
		return &PurchaseMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walletledger_purchase_orders_total",
		Help: "Purchase orders by product type and resulting status.",
	}, []string{"product_type", "status"})
	providerLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "walletledger_provider_call_seconds",
		Help:    "Latency of fulfillment provider calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walletledger_verifications_total",
		Help: "Verification attempts by outcome.",
	}, []string{"outcome"})
	fundings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "walletledger_funding_events_total",
		Help: "Funding notifications by processing status.",
	}, []string{"status"})
	reg.MustRegister(orders, providerLatency, verifications, fundings)
	return &PurchaseMetrics{
		orders:          orders,
		providerLatency: providerLatency,
		verifications:   verifications,
		fundings:        fundings,
	}
}

func (m *PurchaseMetrics) IncOrder(productType, status string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(productType), normalizeLabel(status)).Inc()
}

func (m *PurchaseMetrics) ObserveProviderCall(provider, operation string, d time.Duration) {
	if m == nil || m.providerLatency == nil {
		return
	}
	m.providerLatency.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(d.Seconds())
}

func (m *PurchaseMetrics) IncVerification(outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *PurchaseMetrics) IncFunding(status string) {
	if m == nil || m.fundings == nil {
		return
	}
	m.fundings.WithLabelValues(normalizeLabel(status)).Inc()
}
