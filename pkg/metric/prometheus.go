package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	_ Factory = (*promFactory)(nil)
	_ Webhook = (*webhookMetrics)(nil)
	_ Cache   = (*cacheMetrics)(nil)
)

type promFactory struct {
	registry *prometheus.Registry
	webhook  *webhookMetrics
	cache    *cacheMetrics
}

// NewPrometheus builds a factory backed by its own registry so the SDK
// never collides with collectors the host application registered.
func NewPrometheus() Factory {
	registry := prometheus.NewRegistry()

	return &promFactory{
		registry: registry,
		webhook:  newWebhookMetrics(registry),
		cache:    newCacheMetrics(registry),
	}
}

func (f *promFactory) Webhook() Webhook { return f.webhook }
func (f *promFactory) Cache() Cache     { return f.cache }

func (f *promFactory) Handler() http.Handler {
	return promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{})
}

type webhookMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  *prometheus.CounterVec
}

func newWebhookMetrics(registry *prometheus.Registry) *webhookMetrics {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havn_webhook_requests_total",
			Help: "Total number of webhook requests sent to the platform",
		},
		[]string{"endpoint", "status"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "havn_webhook_request_duration_seconds",
			Help:    "Webhook request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havn_webhook_retries_total",
			Help: "Total number of webhook request retries",
		},
		[]string{"endpoint"},
	)

	registry.MustRegister(requests, duration, retries)

	return &webhookMetrics{
		requests: requests,
		duration: duration,
		retries:  retries,
	}
}

func (m *webhookMetrics) Request(endpoint string, status int, duration time.Duration) {
	m.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Add(1)
	m.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *webhookMetrics) Retry(endpoint string) {
	m.retries.WithLabelValues(endpoint).Add(1)
}

type cacheMetrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
}

func newCacheMetrics(registry *prometheus.Registry) *cacheMetrics {
	hits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havn_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"kind"},
	)

	misses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havn_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"kind"},
	)

	evictions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "havn_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"kind", "reason"},
	)

	registry.MustRegister(hits, misses, evictions)

	return &cacheMetrics{
		hits:      hits,
		misses:    misses,
		evictions: evictions,
	}
}

func (m *cacheMetrics) Hit(kind string) {
	m.hits.WithLabelValues(kind).Add(1)
}

func (m *cacheMetrics) Miss(kind string) {
	m.misses.WithLabelValues(kind).Add(1)
}

func (m *cacheMetrics) Eviction(kind, reason string) {
	m.evictions.WithLabelValues(kind, reason).Add(1)
}
