package cache

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	tierRemote = "remote"
	tierLocal  = "local"
)

// Metrics counts cache operations per namespace and tier.
type Metrics struct {
	registry       *prometheus.Registry
	operations     *prometheus.CounterVec
	remoteFailures *prometheus.CounterVec
}

// NewMetrics returns collectors registered on a fresh registry together with
// the Go and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kvcache",
				Name:      "operations_total",
				Help:      "Total number of cache operations by the tier that served them",
			},
			[]string{"namespace", "op", "tier"},
		),
		remoteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kvcache",
				Name:      "remote_failures_total",
				Help:      "Total number of remote operations that failed and fell back to the local store",
			},
			[]string{"namespace", "op"},
		),
	}
	registry.MustRegister(m.operations, m.remoteFailures)
	return m
}

// Registry exposes the underlying registry so callers can add collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) served(namespace, op, tier string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(namespace, op, tier).Inc()
}

func (m *Metrics) remoteFailed(namespace, op string) {
	if m == nil {
		return
	}
	m.remoteFailures.WithLabelValues(namespace, op).Inc()
}
