package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	entriesConsumed *prometheus.CounterVec
	proposalsTotal  *prometheus.CounterVec
	actionsTotal    *prometheus.CounterVec
	broadcastsTotal *prometheus.CounterVec
	liveConnections prometheus.Gauge
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		entriesConsumed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_entries_consumed_total",
				Help: "Total number of stream entries consumed per topic",
			},
			[]string{"topic"},
		),
		proposalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_proposals_total",
				Help: "Total number of proposals emitted by agents",
			},
			[]string{"agent", "type"},
		),
		actionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_actions_total",
				Help: "Total number of actions by status",
			},
			[]string{"status"},
		),
		broadcastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_broadcasts_total",
				Help: "Total number of envelopes broadcast per topic",
			},
			[]string{"topic"},
		),
		liveConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "govpulse_live_connections",
				Help: "Current number of live gateway subscribers",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "govpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "govpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEntryConsumed records one consumed stream entry.
func (r *Recorder) RecordEntryConsumed(topic string) {
	r.entriesConsumed.WithLabelValues(topic).Inc()
}

// RecordProposal records a proposal emitted by an agent.
func (r *Recorder) RecordProposal(agentID, proposalType string) {
	r.proposalsTotal.WithLabelValues(agentID, proposalType).Inc()
}

// RecordAction records an action outcome.
func (r *Recorder) RecordAction(status string) {
	r.actionsTotal.WithLabelValues(status).Inc()
}

// RecordBroadcast records one envelope fanned out to subscribers.
func (r *Recorder) RecordBroadcast(topic string) {
	r.broadcastsTotal.WithLabelValues(topic).Inc()
}

// RecordLiveConnections sets the current subscriber count.
func (r *Recorder) RecordLiveConnections(n int) {
	r.liveConnections.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
