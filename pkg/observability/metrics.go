package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instrumentation for the breadcrumb store,
// event bus, context assembly engine, hygiene reaper, and HTTP surface.
// All Record* methods are nil-safe so components can hold a *Metrics that
// may be nil when metrics collection is disabled.
type Metrics struct {
	registry *prometheus.Registry

	storeOpsTotal    *prometheus.CounterVec
	storeOpDuration  *prometheus.HistogramVec
	storeConflicts   *prometheus.CounterVec
	breadcrumbsTotal *prometheus.GaugeVec

	eventsPublished *prometheus.CounterVec
	eventsDelivered *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	subscriberQueue *prometheus.GaugeVec

	assemblyRuns     *prometheus.CounterVec
	assemblyDuration *prometheus.HistogramVec
	assemblyTokens   *prometheus.HistogramVec
	assemblyNodes    *prometheus.HistogramVec
	assemblyErrors   *prometheus.CounterVec

	hygieneCycles  *prometheus.CounterVec
	hygieneExpired *prometheus.CounterVec
	hygieneLatency prometheus.Histogram

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	httpResponseSize  *prometheus.HistogramVec
}

// NewMetrics builds and registers every metric family on a fresh registry.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil {
		cfg = &MetricsConfig{}
	}
	cfg.SetDefaults()
	reg := prometheus.NewRegistry()
	f := promFactory{ns: cfg.Namespace, sub: cfg.Subsystem, labels: cfg.ConstLabels, reg: reg}

	m := &Metrics{
		registry: reg,

		storeOpsTotal:    f.counterVec("store_ops_total", "Breadcrumb store operations by kind and outcome.", "op", "outcome"),
		storeOpDuration:  f.histogramVec("store_op_duration_seconds", "Breadcrumb store operation latency.", prometheus.DefBuckets, "op"),
		storeConflicts:   f.counterVec("store_version_conflicts_total", "Optimistic concurrency conflicts detected on write.", "op"),
		breadcrumbsTotal: f.gaugeVec("breadcrumbs_total", "Current breadcrumb count by tenant and schema.", "tenant", "schema"),

		eventsPublished: f.counterVec("events_published_total", "Events published to the bus.", "schema", "op"),
		eventsDelivered: f.counterVec("events_delivered_total", "Events delivered to a subscriber.", "subscriber_kind"),
		eventsDropped:   f.counterVec("events_dropped_total", "Events dropped due to backpressure or subscriber error.", "subscriber_kind", "reason"),
		subscriberQueue: f.gaugeVec("subscriber_queue_depth", "Current queue depth per subscriber.", "subscriber_id"),

		assemblyRuns:     f.counterVec("assembly_runs_total", "Context assembly runs by outcome.", "consumer_id", "outcome"),
		assemblyDuration: f.histogramVec("assembly_duration_seconds", "Context assembly wall time.", prometheus.DefBuckets, "consumer_id"),
		assemblyTokens:   f.histogramVec("assembly_tokens_used", "Token budget consumed per assembly run.", []float64{128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768}, "consumer_id"),
		assemblyNodes:    f.histogramVec("assembly_nodes_selected", "Graph nodes selected by the pathfinder walk.", []float64{1, 2, 4, 8, 16, 32, 64, 128, 200}, "consumer_id"),
		assemblyErrors:   f.counterVec("assembly_errors_total", "Context assembly failures by cause.", "consumer_id", "cause"),

		hygieneCycles:  f.counterVec("hygiene_cycles_total", "Hygiene reaper cycles run.", "outcome"),
		hygieneExpired: f.counterVec("hygiene_expired_total", "Breadcrumbs expired by TTL policy.", "policy"),
		hygieneLatency: f.histogram("hygiene_cycle_duration_seconds", "Hygiene reaper cycle duration.", prometheus.DefBuckets),

		httpRequestsTotal: f.counterVec("http_requests_total", "HTTP requests by route and status class.", "method", "route", "status_class"),
		httpDuration:      f.histogramVec("http_request_duration_seconds", "HTTP request latency.", prometheus.DefBuckets, "method", "route"),
		httpResponseSize:  f.histogramVec("http_response_size_bytes", "HTTP response size.", prometheus.ExponentialBuckets(64, 4, 8), "method", "route"),
	}
	return m, nil
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordStoreOp(ctx context.Context, op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeOpsTotal.WithLabelValues(op, outcome).Inc()
	m.storeOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *Metrics) RecordStoreConflict(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.storeConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) SetBreadcrumbCount(tenant, schema string, count float64) {
	if m == nil {
		return
	}
	m.breadcrumbsTotal.WithLabelValues(tenant, schema).Set(count)
}

func (m *Metrics) RecordEventPublished(ctx context.Context, schema, op string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(schema, op).Inc()
}

func (m *Metrics) RecordEventDelivered(ctx context.Context, subscriberKind string) {
	if m == nil {
		return
	}
	m.eventsDelivered.WithLabelValues(subscriberKind).Inc()
}

func (m *Metrics) RecordEventDropped(ctx context.Context, subscriberKind, reason string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(subscriberKind, reason).Inc()
}

func (m *Metrics) SetSubscriberQueueDepth(subscriberID string, depth float64) {
	if m == nil {
		return
	}
	m.subscriberQueue.WithLabelValues(subscriberID).Set(depth)
}

func (m *Metrics) RecordAssembly(ctx context.Context, consumerID, outcome string, duration time.Duration, tokens, nodes int) {
	if m == nil {
		return
	}
	m.assemblyRuns.WithLabelValues(consumerID, outcome).Inc()
	m.assemblyDuration.WithLabelValues(consumerID).Observe(duration.Seconds())
	m.assemblyTokens.WithLabelValues(consumerID).Observe(float64(tokens))
	m.assemblyNodes.WithLabelValues(consumerID).Observe(float64(nodes))
}

func (m *Metrics) RecordAssemblyError(ctx context.Context, consumerID, cause string) {
	if m == nil {
		return
	}
	m.assemblyErrors.WithLabelValues(consumerID, cause).Inc()
}

func (m *Metrics) RecordHygieneCycle(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.hygieneCycles.WithLabelValues(outcome).Inc()
	m.hygieneLatency.Observe(duration.Seconds())
}

func (m *Metrics) RecordHygieneExpired(ctx context.Context, policy string, count int) {
	if m == nil {
		return
	}
	m.hygieneExpired.WithLabelValues(policy).Add(float64(count))
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration, responseSize int) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, statusCodeLabel(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.httpResponseSize.WithLabelValues(method, route).Observe(float64(responseSize))
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// promFactory reduces the boilerplate of namespacing and registering a
// metric family against a specific registry.
type promFactory struct {
	ns     string
	sub    string
	labels map[string]string
	reg    *prometheus.Registry
}

func (f promFactory) counterVec(name, help string, labelNames ...string) *prometheus.CounterVec {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   f.ns,
		Subsystem:   f.sub,
		Name:        name,
		Help:        help,
		ConstLabels: f.labels,
	}, labelNames)
	f.reg.MustRegister(v)
	return v
}

func (f promFactory) gaugeVec(name, help string, labelNames ...string) *prometheus.GaugeVec {
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   f.ns,
		Subsystem:   f.sub,
		Name:        name,
		Help:        help,
		ConstLabels: f.labels,
	}, labelNames)
	f.reg.MustRegister(v)
	return v
}

func (f promFactory) histogramVec(name, help string, buckets []float64, labelNames ...string) *prometheus.HistogramVec {
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   f.ns,
		Subsystem:   f.sub,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: f.labels,
	}, labelNames)
	f.reg.MustRegister(v)
	return v
}

func (f promFactory) histogram(name, help string, buckets []float64) prometheus.Histogram {
	v := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   f.ns,
		Subsystem:   f.sub,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: f.labels,
	})
	f.reg.MustRegister(v)
	return v
}
