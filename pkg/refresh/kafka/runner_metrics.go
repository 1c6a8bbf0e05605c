package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// noMap labels apply actions for events that matched no map.
const noMap = "-"

// metricSet holds the consumer's collectors. Per-map series are bounded by
// the configured maps.
type metricSet struct {
	msgs      *prometheus.CounterVec
	apply     *prometheus.CounterVec
	version   *prometheus.GaugeVec
	refreshed *prometheus.GaugeVec
	proc      *prometheus.HistogramVec
	lagGauge  prometheus.Gauge
}

func newMetricSet(r prometheus.Registerer) *metricSet {
	m := &metricSet{
		msgs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refresh_msgs_total",
				Help: "Sheet update messages by decode and apply result.",
			},
			[]string{"result"},
		),
		apply: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refresh_apply_total",
				Help: "Refresh actions per map: refresh, skip_version, no_target, failed.",
			},
			[]string{"map", "action"},
		),
		version: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "refresh_map_version",
				Help: "Last sheet version redrawn from an update event (0 when unversioned).",
			},
			[]string{"map"},
		),
		refreshed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "refresh_last_applied_timestamp_seconds",
				Help: "Unix time of the last event-driven redraw per map.",
			},
			[]string{"map"},
		),
		proc: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refresh_processing_seconds",
				Help:    "Decode, invalidate and redraw time for one message.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"op"},
		),
		lagGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "refresh_lag_seconds",
				Help: "Time between the update event and its processing.",
			},
		),
	}
	if r != nil {
		r.MustRegister(m.msgs, m.apply, m.version, m.refreshed, m.proc, m.lagGauge)
	}
	return m
}

func (m *metricSet) action(name, action string) {
	if name == "" {
		name = noMap
	}
	m.apply.WithLabelValues(name, action).Inc()
}

func (m *metricSet) applied(name string, version uint64, at time.Time) {
	m.action(name, "refresh")
	m.version.WithLabelValues(name).Set(float64(version))
	m.refreshed.WithLabelValues(name).Set(float64(at.Unix()))
}
