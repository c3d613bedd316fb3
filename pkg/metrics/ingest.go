package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics records webhook order-ingestion outcomes.
type IngestMetrics struct {
	received *prometheus.CounterVec
	outcome  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	replays  prometheus.Counter
}

// NewIngestMetrics registers the ingestion metrics on the provided registerer.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posbridge_orders_received_total",
		Help: "Webhook orders received, by source.",
	}, []string{"source"})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posbridge_orders_processed_total",
		Help: "Webhook orders processed, by source and outcome.",
	}, []string{"source", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "posbridge_order_processing_seconds",
		Help:    "End-to-end processing time for a single order.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	replays := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posbridge_idempotent_replays_total",
		Help: "Requests answered from a stored idempotency record.",
	})
	reg.MustRegister(received, outcome, duration, replays)
	return &IngestMetrics{
		received: received,
		outcome:  outcome,
		duration: duration,
		replays:  replays,
	}
}

// IncReceived counts one incoming order for the source.
func (m *IngestMetrics) IncReceived(source string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncSucceeded counts one successfully processed order.
func (m *IngestMetrics) IncSucceeded(source string) {
	if m == nil || m.outcome == nil {
		return
	}
	m.outcome.WithLabelValues(normalizeLabel(source), "success").Inc()
}

// IncFailed counts one failed order.
func (m *IngestMetrics) IncFailed(source string) {
	if m == nil || m.outcome == nil {
		return
	}
	m.outcome.WithLabelValues(normalizeLabel(source), "failure").Inc()
}

// ObserveProcessing records how long one order took to process.
func (m *IngestMetrics) ObserveProcessing(source string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(source)).Observe(d.Seconds())
}

// IncReplay counts an idempotent replay response.
func (m *IngestMetrics) IncReplay() {
	if m == nil || m.replays == nil {
		return
	}
	m.replays.Inc()
}
