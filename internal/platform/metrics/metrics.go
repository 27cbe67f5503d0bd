package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for answer submissions.
const (
	OutcomeCorrect          = "correct"
	OutcomeIncorrect        = "incorrect"
	OutcomeAlreadyAttempted = "already_attempted"
)

// Phase labels for problem selection.
const (
	PhaseWindow    = "window"
	PhaseNearest   = "nearest"
	PhaseExhausted = "exhausted"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestCounter       *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	AnswerSubmissions    *prometheus.CounterVec
	ProblemSelections    *prometheus.CounterVec
	ContentFetchFailures *prometheus.CounterVec
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		AnswerSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "answer_submissions_total",
				Help: "Answer submissions by outcome",
			},
			[]string{"outcome"},
		),
		ProblemSelections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "problem_selections_total",
				Help: "Next-problem selections by the phase that produced them",
			},
			[]string{"phase"},
		),
		ContentFetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_fetch_failures_total",
				Help: "Failed requests to the content service",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.AnswerSubmissions,
		m.ProblemSelections,
		m.ContentFetchFailures,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
