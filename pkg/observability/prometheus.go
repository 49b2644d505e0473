package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHooks implements [ScanHooks] and [CacheHooks] on a private
// Prometheus registry. A CLI run is too short-lived to be scraped, so the
// collected metrics are written out with [PrometheusHooks.WriteTextfile] for
// the node exporter's textfile collector.
type PrometheusHooks struct {
	registry *prometheus.Registry

	parseTotal    *prometheus.CounterVec
	parseNodes    prometheus.Histogram
	scanTotal     *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
	replications  *prometheus.CounterVec
	significant   *prometheus.GaugeVec
	cacheRequests *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
}

// NewPrometheusHooks creates hooks with their own registry.
func NewPrometheusHooks() *PrometheusHooks {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &PrometheusHooks{
		registry: reg,
		parseTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "treescan_parse_total",
			Help: "Tree inputs parsed by result",
		}, []string{"result"}),
		parseNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "treescan_tree_nodes",
			Help:    "Nodes per parsed tree",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8), // 10 to ~160k
		}),
		scanTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "treescan_scan_total",
			Help: "Scans by model and result",
		}, []string{"model", "result"}),
		scanDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "treescan_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~45min
		}, []string{"model"}),
		replications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "treescan_replications_total",
			Help: "Monte Carlo replications completed",
		}, []string{"model"}),
		significant: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "treescan_significant_cuts",
			Help: "Cuts with p <= 0.05 in the last scan",
		}, []string{"model"}),
		cacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "treescan_cache_requests_total",
			Help: "Result cache lookups by key type and outcome",
		}, []string{"key_type", "outcome"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "treescan_cache_written_bytes_total",
			Help: "Bytes written to the result cache",
		}, []string{"key_type"}),
	}
}

func (h *PrometheusHooks) OnParseComplete(_ context.Context, nodes, _ int, _ time.Duration, err error) {
	h.parseTotal.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		h.parseNodes.Observe(float64(nodes))
	}
}

func (h *PrometheusHooks) OnScanStart(context.Context, string, int, int) {}

func (h *PrometheusHooks) OnScanComplete(_ context.Context, model string, completed int, d time.Duration, err error) {
	h.scanTotal.WithLabelValues(model, resultLabel(err)).Inc()
	h.scanDuration.WithLabelValues(model).Observe(d.Seconds())
	h.replications.WithLabelValues(model).Add(float64(completed))
}

func (h *PrometheusHooks) OnSignificantCuts(_ context.Context, model string, count int) {
	h.significant.WithLabelValues(model).Set(float64(count))
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// Gatherer exposes the registry, mainly for tests.
func (h *PrometheusHooks) Gatherer() prometheus.Gatherer {
	return h.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (h *PrometheusHooks) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, h.registry)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ ScanHooks  = (*PrometheusHooks)(nil)
	_ CacheHooks = (*PrometheusHooks)(nil)
)
