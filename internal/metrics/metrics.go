package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels.
const (
	StageEmbed   = "embed"
	StageMatch   = "match"
	StageHandler = "handler"
)

// Metrics holds the router collectors. A nil *Metrics records nothing.
type Metrics struct {
	Selections *prometheus.CounterVec
	Errors     *prometheus.CounterVec
	Stage      *prometheus.HistogramVec
}

// New registers the router collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Selections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semroute_selections_total",
				Help: "Total number of routing decisions",
			},
			[]string{"route", "fallback"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semroute_errors_total",
				Help: "Total number of failed routing stages",
			},
			[]string{"stage"},
		),
		Stage: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "semroute_stage_seconds",
				Help:    "Latency of each routing stage in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"stage"},
		),
	}
}

// ObserveSelection counts one routing decision.
func (m *Metrics) ObserveSelection(route string, fallback bool) {
	if m == nil {
		return
	}
	m.Selections.WithLabelValues(route, strconv.FormatBool(fallback)).Inc()
}

// ObserveError counts a failure in stage.
func (m *Metrics) ObserveError(stage string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(stage).Inc()
}

// ObserveStage records how long stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.Stage.WithLabelValues(stage).Observe(d.Seconds())
}
