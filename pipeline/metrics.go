package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated after each run.
type Metrics struct {
	runs       prometheus.Counter
	series     *prometheus.CounterVec
	exclusions *prometheus.CounterVec
	seasonal   prometheus.Counter
	duration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fredmd",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed preprocessing runs.",
		}),
		series: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fredmd",
			Subsystem: "pipeline",
			Name:      "series_total",
			Help:      "Series processed, by outcome.",
		}, []string{"outcome"}),
		exclusions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fredmd",
			Subsystem: "pipeline",
			Name:      "exclusions_total",
			Help:      "Series excluded or skipped, by stage and error kind.",
		}, []string{"stage", "kind"}),
		seasonal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fredmd",
			Subsystem: "pipeline",
			Name:      "seasonal_adjustments_total",
			Help:      "Series seasonally adjusted.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fredmd",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{m.runs, m.series, m.exclusions, m.seasonal, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(r *Result) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.duration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	for _, st := range r.Statuses {
		m.series.WithLabelValues(string(st.Outcome)).Inc()
		if st.FailedStage != "" {
			m.exclusions.WithLabelValues(string(st.FailedStage), string(st.Kind)).Inc()
		}
	}
	m.seasonal.Add(float64(r.Summary.Seasonal))
}
