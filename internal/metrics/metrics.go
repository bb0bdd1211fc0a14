package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for UpstreamRequests.
const (
	OutcomeOK = "ok"
)

type Registry struct {
	reg *prometheus.Registry

	UpstreamRequests  *prometheus.CounterVec
	UpstreamLatency   *prometheus.HistogramVec
	EndpointResponses *prometheus.CounterVec
	RateLimited       prometheus.Counter
	ProviderState     *prometheus.GaugeVec
}

// StateValue maps a provider health state name onto the ProviderState gauge.
func StateValue(state string) float64 {
	switch state {
	case "degraded":
		return 1
	case "down":
		return 2
	default:
		return 0
	}
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statshub_upstream_requests_total",
			Help: "Upstream provider calls by outcome (ok or failure kind)",
		}, []string{"provider", "outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statshub_upstream_latency_ms",
			Help:    "Upstream provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(25, 2, 10),
		}, []string{"provider"}),
		EndpointResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statshub_endpoint_responses_total",
			Help: "Aggregation endpoint responses by status code",
		}, []string{"endpoint", "status"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statshub_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter",
		}),
		ProviderState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statshub_provider_state",
			Help: "Provider health: 0 healthy, 1 degraded, 2 down",
		}, []string{"provider"}),
	}
	reg.MustRegister(m.UpstreamRequests, m.UpstreamLatency, m.EndpointResponses, m.RateLimited, m.ProviderState)
	return m
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
