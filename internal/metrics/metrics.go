// Package metrics exposes crawl statistics as Prometheus metrics.
//
// Each Metrics value owns its own registry so that concurrent crawls, and
// tests, never share counters. All methods are safe to call on a nil
// *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/boardcrawl/internal/session"
)

const namespace = "boardcrawl"

// Metrics holds the collectors of one crawl.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec
	Pages           prometheus.Counter
	Players         prometheus.Gauge
	Duplicates      prometheus.Counter
	ParseFailures   prometheus.Counter
	ActiveWorkers   prometheus.Gauge
}

// New creates Metrics registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "HTTP requests by session step and response status.",
		}, []string{"step", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by session step.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"step"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "request_errors_total",
			Help:      "Failed HTTP requests by session step.",
		}, []string{"step"}),
		Pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "pages_fetched_total",
			Help:      "Leaderboard pages whose rows were merged.",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "players",
			Help:      "Unique players collected so far.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "duplicates_total",
			Help:      "Players seen more than once.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "parse_failures_total",
			Help:      "Row blocks skipped as malformed.",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "crawler",
			Name:      "active_workers",
			Help:      "Workers currently running.",
		}),
	}

	m.registry.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.RequestErrors,
		m.Pages,
		m.Players,
		m.Duplicates,
		m.ParseFailures,
		m.ActiveWorkers,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest implements session.Observer.
func (m *Metrics) ObserveRequest(ev session.RequestEvent) {
	if m == nil {
		return
	}
	step := string(ev.Step)
	m.Requests.WithLabelValues(step, strconv.Itoa(ev.Status)).Inc()
	m.RequestDuration.WithLabelValues(step).Observe(ev.Elapsed.Seconds())
	if ev.Err != nil {
		m.RequestErrors.WithLabelValues(step).Inc()
	}
}

// PageFetched counts one merged page.
func (m *Metrics) PageFetched() {
	if m == nil {
		return
	}
	m.Pages.Inc()
}

// SetPlayers records the number of unique players.
func (m *Metrics) SetPlayers(n int) {
	if m == nil {
		return
	}
	m.Players.Set(float64(n))
}

// DuplicateObserved counts one duplicate player.
func (m *Metrics) DuplicateObserved() {
	if m == nil {
		return
	}
	m.Duplicates.Inc()
}

// AddParseFailures counts skipped row blocks.
func (m *Metrics) AddParseFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ParseFailures.Add(float64(n))
}

// WorkerStarted increments the active worker gauge.
func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Inc()
}

// WorkerStopped decrements the active worker gauge.
func (m *Metrics) WorkerStopped() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Dec()
}
