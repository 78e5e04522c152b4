package thinblock

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "thinblock"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of blocks currently being reconstructed.
	ActiveBlocks metrics.Gauge
	// Number of blocks reassembled from thin announcements.
	BlocksReassembled metrics.Counter
	// Transactions still missing right after a stub was built.
	MissingTxs metrics.Histogram
	// Number of announcements rejected for a malformed proof.
	MalformedProofs metrics.Counter
	// Number of times missing transactions were re-requested.
	ReRequests metrics.Counter
	// Number of transactions re-requested.
	ReRequestedTxs metrics.Counter
	// Number of downloads given up after a re-request.
	GiveUps metrics.Counter
	// Number of fallbacks to a full block download.
	FallbackDownloads metrics.Counter
	// Number of misbehavior reports filed against peers.
	Misbehaviors metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		ActiveBlocks: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "active_blocks",
			Help:      "Number of blocks currently being reconstructed.",
		}, labels).With(labelsAndValues...),
		BlocksReassembled: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_reassembled",
			Help:      "Number of blocks reassembled from thin announcements.",
		}, labels).With(labelsAndValues...),
		MissingTxs: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "missing_txs",
			Help:      "Transactions still missing right after a stub was built.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 2, 12),
		}, labels).With(labelsAndValues...),
		MalformedProofs: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "malformed_proofs",
			Help:      "Number of announcements rejected for a malformed proof.",
		}, labels).With(labelsAndValues...),
		ReRequests: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "re_requests",
			Help:      "Number of times missing transactions were re-requested.",
		}, labels).With(labelsAndValues...),
		ReRequestedTxs: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "re_requested_txs",
			Help:      "Number of transactions re-requested.",
		}, labels).With(labelsAndValues...),
		GiveUps: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "give_ups",
			Help:      "Number of downloads given up after a re-request.",
		}, labels).With(labelsAndValues...),
		FallbackDownloads: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "fallback_downloads",
			Help:      "Number of fallbacks to a full block download.",
		}, labels).With(labelsAndValues...),
		Misbehaviors: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "misbehaviors",
			Help:      "Number of misbehavior reports filed against peers.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		ActiveBlocks:      discard.NewGauge(),
		BlocksReassembled: discard.NewCounter(),
		MissingTxs:        discard.NewHistogram(),
		MalformedProofs:   discard.NewCounter(),
		ReRequests:        discard.NewCounter(),
		ReRequestedTxs:    discard.NewCounter(),
		GiveUps:           discard.NewCounter(),
		FallbackDownloads: discard.NewCounter(),
		Misbehaviors:      discard.NewCounter(),
	}
}
