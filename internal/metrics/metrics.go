package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookdata"

// Task results.
const (
	ResultOK        = "ok"
	ResultTransient = "transient"
	ResultFatal     = "fatal"
	ResultPanic     = "panic"
)

// Bar kinds.
const (
	BarTrades       = "trades"
	BarCarryForward = "carry_forward"
)

// Metrics holds every collector of one process.
type Metrics struct {
	registry *prometheus.Registry

	rounds          prometheus.Counter
	roundDuration   prometheus.Histogram
	tasks           *prometheus.CounterVec
	snapsCaptured   prometheus.Counter
	tradesInserted  prometheus.Counter
	statsWritten    prometheus.Counter
	snapsAggregated prometheus.Counter
	bars            *prometheus.CounterVec
	workerErrors    *prometheus.CounterVec
	targets         prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "rounds_total",
			Help:      "Capture rounds dispatched",
		}),
		roundDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "round_duration_seconds",
			Help:      "Wall time from dispatch to barrier",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "tasks_total",
			Help:      "Capture tasks by result",
		}, []string{"exchange", "result"}),
		snapsCaptured: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "snapshots_total",
			Help:      "Book snapshots inserted",
		}),
		tradesInserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "trades_total",
			Help:      "Trades inserted",
		}),
		statsWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "depth_stats_total",
			Help:      "Depth statistic rows written",
		}),
		snapsAggregated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "snapshots_total",
			Help:      "Snapshots marked aggregated",
		}),
		bars: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "bars_total",
			Help:      "One-minute bars written by kind",
		}, []string{"kind"}),
		workerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregate",
			Name:      "worker_errors_total",
			Help:      "Failed worker iterations",
		}, []string{"worker"}),
		targets: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "targets",
			Help:      "Markets in the current capture catalog",
		}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RoundDone records one finished capture round.
func (m *Metrics) RoundDone(d time.Duration) {
	if m == nil {
		return
	}
	m.rounds.Inc()
	m.roundDuration.Observe(d.Seconds())
}

// TaskDone records one capture task outcome.
func (m *Metrics) TaskDone(exchange, result string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(exchange, result).Inc()
}

// SnapCaptured records one inserted snapshot.
func (m *Metrics) SnapCaptured() {
	if m == nil {
		return
	}
	m.snapsCaptured.Inc()
}

// TradesInserted records n inserted trades.
func (m *Metrics) TradesInserted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tradesInserted.Add(float64(n))
}

// StatsWritten records n depth stat rows.
func (m *Metrics) StatsWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.statsWritten.Add(float64(n))
}

// SnapsAggregated records n snapshots marked aggregated.
func (m *Metrics) SnapsAggregated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.snapsAggregated.Add(float64(n))
}

// BarWritten records one bar of the given kind.
func (m *Metrics) BarWritten(kind string) {
	if m == nil {
		return
	}
	m.bars.WithLabelValues(kind).Inc()
}

// WorkerError records one failed worker iteration.
func (m *Metrics) WorkerError(worker string) {
	if m == nil {
		return
	}
	m.workerErrors.WithLabelValues(worker).Inc()
}

// SetTargets records the catalog size.
func (m *Metrics) SetTargets(n int) {
	if m == nil {
		return
	}
	m.targets.Set(float64(n))
}
