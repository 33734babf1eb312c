// Package metrics exposes Prometheus collectors for the compiled catalog
// and for tool-call traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/toolgate/toolgate/pkg/catalog"
)

type Metrics struct {
	registry *prometheus.Registry

	catalogTools *prometheus.GaugeVec
	catalogBytes *prometheus.GaugeVec
	diagnostics  *prometheus.GaugeVec
	calls        *prometheus.CounterVec
	callSeconds  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		catalogTools: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolgate_catalog_tools",
			Help: "Compiled tools per service, disabled included.",
		}, []string{"service"}),
		catalogBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolgate_catalog_bytes",
			Help: "Serialized tool bytes per service.",
		}, []string{"service"}),
		diagnostics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "toolgate_catalog_diagnostics",
			Help: "Catalog diagnostics by severity.",
		}, []string{"severity"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolgate_tool_calls_total",
			Help: "Tool call attempts by tool and upstream status code.",
		}, []string{"tool", "code"}),
		callSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolgate_tool_call_duration_seconds",
			Help:    "Upstream call duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	m.registry.MustRegister(m.catalogTools, m.catalogBytes, m.diagnostics, m.calls, m.callSeconds)
	return m
}

// ObserveCatalog records per-service tool counts, byte sizes and
// diagnostic severities for the compiled catalog.
func (m *Metrics) ObserveCatalog(c *catalog.Catalog) {
	for _, tool := range c.Tools {
		m.catalogTools.WithLabelValues(tool.Service).Inc()
		m.catalogBytes.WithLabelValues(tool.Service).Add(float64(tool.Size))
		for _, entry := range tool.Logs {
			m.diagnostics.WithLabelValues(string(entry.Severity)).Inc()
		}
	}
}

// ObserveCall records one call attempt. code 0 means a transport failure
// before any upstream status was received.
func (m *Metrics) ObserveCall(tool string, code int, d time.Duration) {
	m.calls.WithLabelValues(tool, strconv.Itoa(code)).Inc()
	m.callSeconds.WithLabelValues(tool).Observe(d.Seconds())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
