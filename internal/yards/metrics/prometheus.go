package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds the yards Prometheus collectors. A nil *Manager is valid
// and records nothing.
type Manager struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestLatency   *prometheus.HistogramVec
	ResolutionsTotal *prometheus.CounterVec
	GeocodeTotal     *prometheus.CounterVec
	ListingsReturned prometheus.Histogram
	ActiveSessions   prometheus.Gauge
	SocketClients    prometheus.Gauge
}

// NewManager registers the collectors on a private registry.
func NewManager(namespace string) *Manager {
	registry := prometheus.NewRegistry()

	m := &Manager{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_latency_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_resolutions_total",
			Help:      "Location resolutions by outcome (device, fallback, named).",
		}, []string{"outcome"}),
		GeocodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reverse_geocode_total",
			Help:      "Reverse geocode lookups by result.",
		}, []string{"result"}),
		ListingsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listings_returned",
			Help:      "Listings returned by the browse pipeline.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Live client sessions.",
		}),
		SocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected location websocket clients.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestLatency,
		m.ResolutionsTotal,
		m.GeocodeTotal,
		m.ListingsReturned,
		m.ActiveSessions,
		m.SocketClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Manager) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.RequestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Manager) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Manager) ObserveGeocode(result string) {
	if m == nil {
		return
	}
	m.GeocodeTotal.WithLabelValues(result).Inc()
}

func (m *Manager) ObserveListings(n int) {
	if m == nil {
		return
	}
	m.ListingsReturned.Observe(float64(n))
}

func (m *Manager) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Manager) SocketConnected() {
	if m == nil {
		return
	}
	m.SocketClients.Inc()
}

func (m *Manager) SocketDisconnected() {
	if m == nil {
		return
	}
	m.SocketClients.Dec()
}
