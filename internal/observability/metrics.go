// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Resolver metrics
	MessagesProcessed   prometheus.Counter
	MintsResolved       prometheus.Counter
	ResolutionsBySource *prometheus.CounterVec
	UnresolvedMessages  prometheus.Counter

	// Validator metrics
	DecisionsByStatus *prometheus.CounterVec
	RejectsByReason   *prometheus.CounterVec
	PendingCalls      prometheus.Gauge

	// Monitor metrics
	ActiveMonitors   prometheus.Gauge
	SamplesRecorded  prometheus.Counter
	OutcomesByLabel  *prometheus.CounterVec
	ExecChecksByPass *prometheus.CounterVec

	// Claim metrics
	ClaimsAcquired  prometheus.Counter
	ClaimsContended prometheus.Counter

	// External call metrics
	RPCCallLatency    *prometheus.HistogramVec
	QuoteCallLatency  prometheus.Histogram
	MarketCallLatency prometheus.Histogram
	WSMessageLatency  prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	LastResolverSweep  prometheus.Gauge
	LastValidatorSweep prometheus.Gauge
	LastMonitorSweep   prometheus.Gauge
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ag_trading_bot"
	}

	return &Metrics{
		// Resolver metrics
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "messages_processed_total",
			Help:      "Total number of call messages processed",
		}),
		MintsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "mints_resolved_total",
			Help:      "Total number of messages resolved to a verified mint",
		}),
		ResolutionsBySource: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_by_source_total",
			Help:      "Total number of resolutions by candidate source",
		}, []string{"source"}),
		UnresolvedMessages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "unresolved_messages_total",
			Help:      "Total number of messages with no verifiable mint",
		}),

		// Validator metrics
		DecisionsByStatus: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "decisions_total",
			Help:      "Total number of finalized acceptance decisions by status",
		}, []string{"status"}),
		RejectsByReason: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "rejects_by_reason_total",
			Help:      "Total number of rejections by reason code",
		}, []string{"reason"}),
		PendingCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "pending_calls",
			Help:      "Current number of calls awaiting a decision",
		}),

		// Monitor metrics
		ActiveMonitors: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "active_monitors",
			Help:      "Current number of accepted calls inside their price window",
		}),
		SamplesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "samples_recorded_total",
			Help:      "Total number of price samples recorded",
		}),
		OutcomesByLabel: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "outcomes_total",
			Help:      "Total number of finalized outcomes by label",
		}, []string{"label"}),
		ExecChecksByPass: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "exec_checks_total",
			Help:      "Total number of executability simulations by result",
		}, []string{"result"}),

		// Claim metrics
		ClaimsAcquired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "acquired_total",
			Help:      "Total number of work leases acquired",
		}),
		ClaimsContended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "claims",
			Name:      "contended_total",
			Help:      "Total number of lease acquisitions lost to another worker",
		}),

		// External call metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		QuoteCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jupiter",
			Name:      "quote_latency_seconds",
			Help:      "Quote API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		MarketCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "call_latency_seconds",
			Help:      "Market data API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "ws_message_latency_seconds",
			Help:      "Delay between a streamed price update's timestamp and local apply",
			Buckets:   prometheus.DefBuckets,
		}),

		// Database metrics
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
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		LastResolverSweep: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_resolver_sweep_timestamp",
			Help:      "Unix timestamp of last completed resolver sweep",
		}),
		LastValidatorSweep: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_validator_sweep_timestamp",
			Help:      "Unix timestamp of last completed validator sweep",
		}),
		LastMonitorSweep: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_monitor_sweep_timestamp",
			Help:      "Unix timestamp of last completed monitor sweep",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMessageProcessed increments the messages processed counter.
func RecordMessageProcessed() {
	DefaultMetrics.MessagesProcessed.Inc()
}

// RecordResolution records a successful mint resolution.
func RecordResolution(source string) {
	DefaultMetrics.MintsResolved.Inc()
	DefaultMetrics.ResolutionsBySource.WithLabelValues(source).Inc()
}

// RecordUnresolved increments the unresolved messages counter.
func RecordUnresolved() {
	DefaultMetrics.UnresolvedMessages.Inc()
}

// RecordDecision records a finalized acceptance decision. The reason is
// empty for accepts.
func RecordDecision(status, reason string) {
	DefaultMetrics.DecisionsByStatus.WithLabelValues(status).Inc()
	if reason != "" {
		DefaultMetrics.RejectsByReason.WithLabelValues(reason).Inc()
	}
}

// RecordOutcome records a finalized outcome label.
func RecordOutcome(label string) {
	DefaultMetrics.OutcomesByLabel.WithLabelValues(label).Inc()
}

// RecordExecCheck records an executability simulation result.
func RecordExecCheck(passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	DefaultMetrics.ExecChecksByPass.WithLabelValues(result).Inc()
}

// RecordClaim records a lease acquisition attempt.
func RecordClaim(acquired bool) {
	if acquired {
		DefaultMetrics.ClaimsAcquired.Inc()
	} else {
		DefaultMetrics.ClaimsContended.Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
