package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sprite-ai/prlens/internal/pipeline"
)

// metrics holds the server's collectors. Each server owns a registry so
// several servers can live in one process.
type metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageWarnings *prometheus.CounterVec
	jobsRejected  prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prlens",
			Name:      "runs_total",
			Help:      "Pipeline runs by final state.",
		}, []string{"state"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prlens",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each analysis stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage"}),
		stageWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prlens",
			Name:      "stage_warnings_total",
			Help:      "Warnings recorded by each analysis stage.",
		}, []string{"stage"}),
		jobsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prlens",
			Name:      "jobs_rejected_total",
			Help:      "Job submissions refused because the queue was full.",
		}),
	}
	m.registry.MustRegister(m.runs, m.stageDuration, m.stageWarnings, m.jobsRejected)
	return m
}

// observe records pipeline events. It is registered on every orchestrator
// the server builds.
func (m *metrics) observe(ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventState:
		if ev.State.Terminal() {
			m.runs.WithLabelValues(ev.State.String()).Inc()
		}
	case pipeline.EventStageFinished:
		m.stageDuration.WithLabelValues(ev.Stage).Observe(ev.Elapsed.Seconds())
		if n := len(ev.Warnings); n > 0 {
			m.stageWarnings.WithLabelValues(ev.Stage).Add(float64(n))
		}
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
