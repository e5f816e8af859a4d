// Package metrics holds the Prometheus collectors for tick processing.
//
//   - tickagent_ticks_total{outcome}            ticks by outcome (success|invalid|error)
//   - tickagent_recommendations_total{source}   recommendation provenance (assistant|fallback)
//   - tickagent_mothership_responses_total{code} mothership HTTP status, or "unreachable"
//   - tickagent_unrealized_pnl                  P&L of the last processed tick
//   - tickagent_positions_evaluated             positions priced in the last tick
//   - tickagent_tick_duration_seconds           end-to-end pipeline latency
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tickagent"

const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics owns its registry so several instances (tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	ticks           *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	mothership      *prometheus.CounterVec
	pnl             prometheus.Gauge
	evaluated       prometheus.Gauge
	duration        prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Ticks received, by outcome.",
			},
			[]string{"outcome"},
		),
		recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recommendations_total",
				Help:      "Recommendations produced, by source.",
			},
			[]string{"source"},
		),
		mothership: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mothership_responses_total",
				Help:      "Mothership submissions, by HTTP status or unreachable.",
			},
			[]string{"code"},
		),
		pnl: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unrealized_pnl",
			Help:      "Unrealized P&L computed by the last processed tick.",
		}),
		evaluated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "positions_evaluated",
			Help:      "Positions with a matching price in the last processed tick.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Tick pipeline latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	m.registry.MustRegister(
		m.ticks, m.recommendations, m.mothership, m.pnl, m.evaluated, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveTick(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.duration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ObserveSummary(evaluated int, pnl float64) {
	if m == nil {
		return
	}
	m.evaluated.Set(float64(evaluated))
	m.pnl.Set(pnl)
}

func (m *Metrics) ObserveRecommendation(source string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(source).Inc()
}

// ObserveMothership records status; 0 means no response was obtained.
func (m *Metrics) ObserveMothership(status int) {
	if m == nil {
		return
	}
	code := "unreachable"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.mothership.WithLabelValues(code).Inc()
}
