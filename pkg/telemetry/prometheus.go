package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics reports recognizer metrics to a Prometheus registry.
// Registration happens once, at construction, and fails fast (via
// MustRegister) on a duplicate metric name rather than silently degrading.
type PrometheusMetrics struct {
	matchAttempts    *prometheus.CounterVec
	matchLatency     prometheus.Histogram
	activeContexts   prometheus.Gauge
	commandsEmitted  prometheus.Histogram
	recipesCompleted *prometheus.CounterVec
}

// NewPrometheusMetrics registers the recognizer's metric set against reg
// and returns a ready-to-use sink.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		matchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionrecipe",
			Name:      "match_attempts_total",
			Help:      "Inputs processed, partitioned by whether they produced a match.",
		}, []string{"matched"}),
		matchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "actionrecipe",
			Name:      "match_latency_seconds",
			Help:      "Time spent in one ProcessInput call.",
			Buckets:   prometheus.DefBuckets,
		}),
		activeContexts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "actionrecipe",
			Name:      "active_contexts",
			Help:      "Number of recipes with an in-flight match right now.",
		}),
		commandsEmitted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "actionrecipe",
			Name:      "commands_emitted_per_input",
			Help:      "Commands produced by a single input.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		recipesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "actionrecipe",
			Name:      "recipes_completed_total",
			Help:      "Recipe completions, partitioned by recipe name.",
		}, []string{"recipe"}),
	}

	reg.MustRegister(m.matchAttempts, m.matchLatency, m.activeContexts, m.commandsEmitted, m.recipesCompleted)
	return m
}

func (m *PrometheusMetrics) RecordMatchAttempt(matched bool, duration time.Duration) {
	label := "false"
	if matched {
		label = "true"
	}
	m.matchAttempts.WithLabelValues(label).Inc()
	m.matchLatency.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordActiveContexts(count int) {
	m.activeContexts.Set(float64(count))
}

func (m *PrometheusMetrics) RecordCommandsEmitted(count int) {
	m.commandsEmitted.Observe(float64(count))
}

func (m *PrometheusMetrics) RecordRecipeCompleted(recipeName string) {
	if recipeName == "" {
		recipeName = "unnamed"
	}
	m.recipesCompleted.WithLabelValues(recipeName).Inc()
}
