package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeHigh             = "high"
	OutcomeLow              = "low"
	OutcomeInputError       = "input_error"
	OutcomeModelUnavailable = "model_unavailable"
)

type Metrics struct {
	registry           *prometheus.Registry
	assessments        *prometheus.CounterVec
	suggestions        *prometheus.CounterVec
	suggestionDuration prometheus.Histogram
}

// New builds the collectors on a private registry so that several
// instances can coexist in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stroke_assessments_total",
			Help: "Risk assessment requests by outcome.",
		}, []string{"outcome"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stroke_suggestions_total",
			Help: "Suggestion API calls by status.",
		}, []string{"status"}),
		suggestionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stroke_suggestion_duration_seconds",
			Help:    "Latency of the suggestion API round trip.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
	}
	m.registry.MustRegister(
		m.assessments,
		m.suggestions,
		m.suggestionDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveAssessment(outcome string) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSuggestion(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.suggestions.WithLabelValues(status).Inc()
	m.suggestionDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
