package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SettlementMetrics covers the payment settlement path: gateway traffic,
// confirmation outcomes and stock adjustments.
type SettlementMetrics struct {
	GatewayAttempts  *prometheus.CounterVec
	GatewayLatencyMS *prometheus.HistogramVec
	Confirmations    *prometheus.CounterVec
	StockFailures    *prometheus.CounterVec
}

func NewSettlementMetrics() *SettlementMetrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "orders",
		Name:      "gateway_attempts_total",
		Help:      "Payment gateway HTTP attempts, including retries.",
	}, []string{"operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "orders",
		Name:      "gateway_attempt_duration_ms",
		Help:      "Payment gateway attempt latency in milliseconds.",
		Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"operation"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "orders",
		Name:      "confirmations_total",
		Help:      "Payment confirmation attempts by terminal result.",
	}, []string{"result"})
	stockFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "orders",
		Name:      "stock_decrement_failures_total",
		Help:      "Stock decrements that failed after a settled payment.",
	}, []string{"reason"})

	prometheus.MustRegister(attempts, latency, confirmations, stockFailures)
	return &SettlementMetrics{
		GatewayAttempts:  attempts,
		GatewayLatencyMS: latency,
		Confirmations:    confirmations,
		StockFailures:    stockFailures,
	}
}

// Confirmation result labels.
const (
	ResultConfirmed              = "confirmed"
	ResultValidationFailed       = "validation_failed"
	ResultNotFound               = "not_found"
	ResultAmountMismatch         = "amount_mismatch"
	ResultStateConflict          = "state_conflict"
	ResultGatewayRejected        = "gateway_rejected"
	ResultGatewayUnavailable     = "gateway_unavailable"
	ResultResponseIntegrity      = "response_integrity"
	ResultReconciliationRequired = "reconciliation_required"
)

func Handler() http.Handler {
	return promhttp.Handler()
}
