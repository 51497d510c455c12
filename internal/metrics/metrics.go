// Package metrics exposes Prometheus instrumentation for the catalog server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one server instance. It is constructed
// by the composition root and injected; there is no package-level registry.
type Metrics struct {
	registry *prometheus.Registry

	probeAttempts  *prometheus.CounterVec
	probeFailures  *prometheus.CounterVec
	gatewayWins    *prometheus.CounterVec
	renderFailures prometheus.Counter
	unavailable    prometheus.Counter
	proxyRequests  *prometheus.CounterVec
	proxyErrors    *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		probeAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_image_probe_attempts_total",
			Help: "Image candidate-source probe attempts, by source.",
		}, []string{"source"}),
		probeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_image_probe_failures_total",
			Help: "Image candidate-source probe failures, by source.",
		}, []string{"source"}),
		gatewayWins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_ipfs_gateway_wins_total",
			Help: "Successful IPFS probes, by gateway base URL.",
		}, []string{"gateway"}),
		renderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_image_render_failures_total",
			Help: "Render-failure signals received from the display layer.",
		}),
		unavailable: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_image_unavailable_total",
			Help: "Records frozen at the terminal unavailable placeholder.",
		}),
		proxyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_proxy_requests_total",
			Help: "Marketplace proxy requests, by route.",
		}, []string{"route"}),
		proxyErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_proxy_errors_total",
			Help: "Marketplace proxy upstream failures, by route.",
		}, []string{"route"}),
	}
}

// Handler returns the /metrics HTTP handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ProbeAttempt(source string) {
	m.probeAttempts.WithLabelValues(source).Inc()
}

func (m *Metrics) ProbeFailure(source string) {
	m.probeFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) GatewayWin(gateway string) {
	m.gatewayWins.WithLabelValues(gateway).Inc()
}

func (m *Metrics) RenderFailure() {
	m.renderFailures.Inc()
}

func (m *Metrics) ImageUnavailable() {
	m.unavailable.Inc()
}

func (m *Metrics) ProxyRequest(route string) {
	m.proxyRequests.WithLabelValues(route).Inc()
}

func (m *Metrics) ProxyError(route string) {
	m.proxyErrors.WithLabelValues(route).Inc()
}
