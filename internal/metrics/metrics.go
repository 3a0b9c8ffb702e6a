package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks orders executed, by venue, kind, side and outcome.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookingauto_orders_total",
			Help: "Total number of order executions (by exchange, kind, side and result).",
		},
		[]string{"exchange", "kind", "side", "result"}, // result = "ok" | "error"
	)

	// Measures end-to-end order execution duration, resolution included.
	OrderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookingauto_order_duration_seconds",
			Help:    "Duration of order executions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"exchange", "kind"},
	)

	// Tracks order-create attempts that failed and were retried.
	SubmitRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookingauto_submit_retries_total",
			Help: "Total number of failed order-create attempts that were retried.",
		},
		[]string{"exchange"},
	)

	// Tracks hedge flows by operation and outcome. "compensated" counts
	// domestic failures that were unwound successfully.
	HedgeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookingauto_hedge_operations_total",
			Help: "Total number of hedge open/close flows by result.",
		},
		[]string{"op", "result"}, // op = "open" | "close"
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookingauto_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)
)

// ObserveDuration records the time taken since start on the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters are not duration metrics
	}
}

func IncOrder(exchange, kind, side, result string) {
	OrdersTotal.WithLabelValues(exchange, kind, side, result).Inc()
}

func IncSubmitRetry(exchange string) {
	SubmitRetriesTotal.WithLabelValues(exchange).Inc()
}

func IncHedgeOperation(op, result string) {
	HedgeOperationsTotal.WithLabelValues(op, result).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
