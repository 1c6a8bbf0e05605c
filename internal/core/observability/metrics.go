package observability

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	upstreamLatencySeconds     *prometheus.HistogramVec
	cacheResults               *prometheus.CounterVec
	cacheOps                   *prometheus.CounterVec
	redisOpDuration            *prometheus.HistogramVec
	points                     *prometheus.GaugeVec
	draws                      *prometheus.CounterVec
	markerClicks               *prometheus.CounterVec
	lastDraw                   *prometheus.GaugeVec
}

var active atomic.Pointer[collectors]

func init() {
	Init(prometheus.DefaultRegisterer, true)
}

func newCollectors() *collectors {
	return &collectors{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
			},
			[]string{"method", "route", "status"},
		),
		upstreamLatencySeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_latency_seconds",
				Help:    "Latency of upstream sheet fetches in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"upstream"},
		),
		cacheResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_results_total",
				Help: "Sheet cache lookups by outcome.",
			},
			[]string{"outcome"},
		),
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_op_total",
				Help: "Redis operations by op and result.",
			},
			[]string{"op", "result"},
		),
		redisOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redis_operation_duration_seconds",
				Help:    "Duration of Redis operations in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"op"},
		),
		points: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mapsheet_points_total",
				Help: "Points loaded by the last draw of each map, split by validity.",
			},
			[]string{"map", "validity"},
		),
		draws: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapsheet_draws_total",
				Help: "Completed initialize and draw cycles.",
			},
			[]string{"map", "provider"},
		),
		markerClicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapsheet_marker_clicks_total",
				Help: "Marker clicks dispatched to a map.",
			},
			[]string{"map"},
		),
		lastDraw: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mapsheet_last_draw_timestamp_seconds",
				Help: "Unix time of the last completed draw per map.",
			},
			[]string{"map"},
		),
	}
}

// Init swaps in a fresh collector set registered on reg. With enabled=false
// every observation becomes a no-op. Collectors already present on reg are
// reused so Init is safe to call twice against the same registry.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled {
		active.Store(nil)
		return
	}
	c := newCollectors()
	if reg != nil {
		c.httpRequestsTotal = register(reg, c.httpRequestsTotal)
		c.httpRequestDurationSeconds = register(reg, c.httpRequestDurationSeconds)
		c.upstreamLatencySeconds = register(reg, c.upstreamLatencySeconds)
		c.cacheResults = register(reg, c.cacheResults)
		c.cacheOps = register(reg, c.cacheOps)
		c.redisOpDuration = register(reg, c.redisOpDuration)
		c.points = register(reg, c.points)
		c.draws = register(reg, c.draws)
		c.markerClicks = register(reg, c.markerClicks)
		c.lastDraw = register(reg, c.lastDraw)
	}
	active.Store(c)
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func current() *collectors { return active.Load() }

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	c := current()
	if c == nil {
		return
	}
	st := strconv.Itoa(status)
	c.httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	c.httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	if c := current(); c != nil {
		c.upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
	}
}

// ObserveCacheOp records one Redis round trip.
func ObserveCacheOp(op string, err error, durationSeconds float64) {
	c := current()
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.cacheOps.WithLabelValues(op, result).Inc()
	c.redisOpDuration.WithLabelValues(op).Observe(durationSeconds)
}

func AddCacheHits(n int) {
	if c := current(); c != nil && n > 0 {
		c.cacheResults.WithLabelValues("hit").Add(float64(n))
	}
}

func AddCacheMisses(n int) {
	if c := current(); c != nil && n > 0 {
		c.cacheResults.WithLabelValues("miss").Add(float64(n))
	}
}

// ObserveDraw records a finished draw cycle of mapName.
func ObserveDraw(mapName, provider string, valid, invalid int, unixSeconds float64) {
	c := current()
	if c == nil {
		return
	}
	c.draws.WithLabelValues(mapName, provider).Inc()
	c.points.WithLabelValues(mapName, "valid").Set(float64(valid))
	c.points.WithLabelValues(mapName, "invalid").Set(float64(invalid))
	c.lastDraw.WithLabelValues(mapName).Set(unixSeconds)
}

func IncMarkerClick(mapName string) {
	if c := current(); c != nil {
		c.markerClicks.WithLabelValues(mapName).Inc()
	}
}
