package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors for the order workflow. Label values come from closed
// vocabularies (status codes, payment methods, fixed outcome names) so
// cardinality stays bounded.
var (
	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_order_transitions_total",
			Help: "Order status transitions applied, by previous and new status.",
		},
		[]string{"from", "to"},
	)

	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_orders_created_total",
			Help: "Orders created at checkout, by payment method.",
		},
		[]string{"payment"},
	)

	ordersByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orderbot_orders",
			Help: "Orders currently in each status, refreshed every reconciliation sweep.",
		},
		[]string{"status"},
	)

	sweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orderbot_reconcile_sweep_duration_seconds",
			Help:    "Duration of reconciliation sweeps.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	carrierQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_carrier_status_queries_total",
			Help: "Carrier tracking queries, by result (received, in_transit, unavailable).",
		},
		[]string{"result"},
	)

	updatesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderbot_updates_total",
			Help: "Inbound chat updates, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	notifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderbot_notification_failures_total",
			Help: "Outbound chat messages that could not be delivered.",
		},
	)
)

func init() {
	prometheus.MustRegister(orderTransitions, ordersCreated, ordersByStatus,
		sweepDuration, carrierQueries, updatesHandled, notifyFailures)
}

// ObserveTransition counts one applied status change.
func ObserveTransition(from, to string) {
	orderTransitions.WithLabelValues(from, to).Inc()
}

// ObserveOrderCreated counts a checkout.
func ObserveOrderCreated(payment string) {
	ordersCreated.WithLabelValues(payment).Inc()
}

// SetOrdersByStatus replaces the per-status order gauge. Statuses missing
// from counts but present in known are reset to zero.
func SetOrdersByStatus(known []string, counts map[string]int64) {
	for _, s := range known {
		ordersByStatus.WithLabelValues(s).Set(float64(counts[s]))
	}
}

// ObserveSweep records one reconciliation sweep.
func ObserveSweep(d time.Duration, outcome string) {
	sweepDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveCarrierQuery counts one tracking query.
func ObserveCarrierQuery(result string) {
	carrierQueries.WithLabelValues(result).Inc()
}

// ObserveUpdate counts one inbound update.
func ObserveUpdate(kind, outcome string) {
	updatesHandled.WithLabelValues(kind, outcome).Inc()
}

// NotificationFailed counts an undeliverable outbound message.
func NotificationFailed() {
	notifyFailures.Inc()
}
