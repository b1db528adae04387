// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solana-mev-decoder/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Analysis metrics
	TransactionsAnalyzed *prometheus.CounterVec
	DecodeFailures       *prometheus.CounterVec
	MEVDetected          *prometheus.CounterVec
	ProfitUSDC           prometheus.Histogram
	AnalysisLatency      prometheus.Histogram

	// Solana metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	WSNotifications prometheus.Counter

	// Monitor metrics
	MonitorCycles     *prometheus.CounterVec
	MonitorActive     prometheus.Gauge
	HistorySize       prometheus.Gauge
	LastProcessedSlot prometheus.Gauge

	// API metrics
	WSClients prometheus.Gauge

	// Pricing metrics
	PriceRefreshes *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Events
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mev_decoder"
	}

	return &Metrics{
		TransactionsAnalyzed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "transactions_analyzed_total",
			Help:      "Total number of transactions analyzed by resulting pattern",
		}, []string{"pattern"}),
		DecodeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "decode_failures_total",
			Help:      "Total number of transactions that could not be analyzed by reason",
		}, []string{"reason"}),
		MEVDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "mev_detected_total",
			Help:      "Total number of MEV verdicts by pattern",
		}, []string{"pattern"}),
		ProfitUSDC: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "profit_usdc",
			Help:      "Estimated profit of MEV transactions in USD",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 1000},
		}),
		AnalysisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "latency_seconds",
			Help:      "End to end fetch, decode and classify latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),
		WSNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_notifications_total",
			Help:      "Total number of logsSubscribe notifications received",
		}),

		MonitorCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Total number of monitor polling cycles by status",
		}, []string{"status"}),
		MonitorActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "active",
			Help:      "1 while the monitor loop is running",
		}),
		HistorySize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "history_size",
			Help:      "Number of analyzed transactions held in the history store",
		}),
		LastProcessedSlot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "last_processed_slot",
			Help:      "Slot of the most recently analyzed transaction",
		}),

		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients",
			Help:      "Number of connected transaction feed websocket clients",
		}),

		PriceRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "refreshes_total",
			Help:      "Total number of price refreshes by status",
		}, []string{"status"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of MEV events published by status",
		}, []string{"status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

func patternLabel(p domain.MEVPattern) string {
	if p == domain.PatternNone {
		return "none"
	}
	return string(p)
}

// RecordAnalysis records one analyzed transaction.
func RecordAnalysis(tx *domain.MEVTransaction, seconds float64) {
	DefaultMetrics.TransactionsAnalyzed.WithLabelValues(patternLabel(tx.Pattern)).Inc()
	DefaultMetrics.AnalysisLatency.Observe(seconds)
	if tx.IsMEV {
		DefaultMetrics.MEVDetected.WithLabelValues(patternLabel(tx.Pattern)).Inc()
		DefaultMetrics.ProfitUSDC.Observe(tx.ProfitUSDC)
	}
	DefaultMetrics.LastProcessedSlot.Set(float64(tx.Slot))
}

// RecordDecodeFailure records a transaction that produced no analysis.
func RecordDecodeFailure(reason string) {
	DefaultMetrics.DecodeFailures.WithLabelValues(reason).Inc()
}

// RecordRPCCall records RPC call latency and failures.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordWSNotification counts one logsSubscribe notification.
func RecordWSNotification() {
	DefaultMetrics.WSNotifications.Inc()
}

// RecordMonitorCycle records a monitor cycle outcome.
func RecordMonitorCycle(status string) {
	DefaultMetrics.MonitorCycles.WithLabelValues(status).Inc()
}

// SetMonitorActive flips the monitor gauge.
func SetMonitorActive(active bool) {
	if active {
		DefaultMetrics.MonitorActive.Set(1)
		return
	}
	DefaultMetrics.MonitorActive.Set(0)
}

// UpdateHistorySize updates the history size gauge.
func UpdateHistorySize(n int) {
	DefaultMetrics.HistorySize.Set(float64(n))
}

// AddWSClients adjusts the websocket client gauge by delta.
func AddWSClients(delta int) {
	DefaultMetrics.WSClients.Add(float64(delta))
}

// RecordPriceRefresh records a price refresh outcome.
func RecordPriceRefresh(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.PriceRefreshes.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordEventPublished records an event publish attempt.
func RecordEventPublished(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.EventsPublished.WithLabelValues(status).Inc()
}
