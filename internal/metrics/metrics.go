// Package metrics exposes Prometheus counters and gauges for the accessory
// server.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/hapd/internal/events"
)

const namespace = "hapd"

// Metrics owns a private registry so several servers (and tests) can run in
// one process.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	emitted  *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by listener, route and status.",
		}, []string{"listener", "route", "status"}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Events delivered to the metrics listener, by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.emitted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSessions exports the number of open HAP connections.
func (m *Metrics) ObserveSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Open controller connections.",
	}, func() float64 { return float64(count()) }))
}

// ObserveListeners exports the number of event bus listeners.
func (m *Metrics) ObserveListeners(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_listeners",
		Help:      "Listeners registered on the event bus.",
	}, func() float64 { return float64(count()) }))
}

// ObservePairings exports the number of paired controllers.
func (m *Metrics) ObservePairings(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pairings",
		Help:      "Paired controllers.",
	}, func() float64 { return float64(count()) }))
}

// Listen counts every event emitted on em. Close the returned subscription
// to stop.
func (m *Metrics) Listen(em *events.Emitter) *events.Subscription {
	return em.AddListener(func(_ context.Context, e events.Event) {
		m.emitted.WithLabelValues(string(e.Kind())).Inc()
	})
}

// Middleware counts requests by chi route pattern.
func (m *Metrics) Middleware(listener string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.requests.WithLabelValues(listener, route, strconv.Itoa(status)).Inc()
		})
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
