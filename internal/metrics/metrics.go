// Package metrics exports editor activity as Prometheus metrics.
//
// A Metrics value satisfies the recorder interfaces of the engine, the
// command dispatcher and the upload session, so one instance can be
// passed to all three.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "folio"

// Metrics holds the folio collectors.
type Metrics struct {
	registry *prometheus.Registry

	applied      *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	applySeconds prometheus.Histogram
	steps        prometheus.Histogram
	docSize      prometheus.Gauge

	commands       *prometheus.CounterVec
	commandSeconds *prometheus.HistogramVec

	uploads       *prometheus.CounterVec
	uploadSeconds *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_applied_total",
			Help:      "Committed transactions by origin (user, undo, redo, remote).",
		}, []string{"origin"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_rejected_total",
			Help:      "Rejected transactions by reason.",
		}, []string{"reason"}),
		applySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_apply_seconds",
			Help:      "Time to validate and commit a transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		steps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_steps",
			Help:      "Steps per committed transaction.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 64},
		}),
		docSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "document_size",
			Help:      "Content size of the current document in positions.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Executed commands by name and result.",
		}, []string{"command", "result"}),
		commandSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_seconds",
			Help:      "Command execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"command"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Finished uploads by media kind and result.",
		}, []string{"kind", "result"}),
		uploadSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_seconds",
			Help:      "Upload duration by media kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.applied, m.rejected, m.applySeconds, m.steps, m.docSize,
		m.commands, m.commandSeconds,
		m.uploads, m.uploadSeconds,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TransactionApplied implements engine.Metrics.
func (m *Metrics) TransactionApplied(origin string, steps int, elapsed time.Duration) {
	m.applied.WithLabelValues(origin).Inc()
	m.steps.Observe(float64(steps))
	m.applySeconds.Observe(elapsed.Seconds())
}

// TransactionRejected implements engine.Metrics.
func (m *Metrics) TransactionRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// DocumentSize implements engine.Metrics.
func (m *Metrics) DocumentSize(size int) {
	m.docSize.Set(float64(size))
}

// CommandExecuted implements command.Metrics.
func (m *Metrics) CommandExecuted(name string, ok bool, elapsed time.Duration) {
	m.commands.WithLabelValues(name, result(ok)).Inc()
	m.commandSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
}

// UploadFinished implements upload.Metrics.
func (m *Metrics) UploadFinished(kind string, ok bool, elapsed time.Duration) {
	m.uploads.WithLabelValues(kind, result(ok)).Inc()
	m.uploadSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
