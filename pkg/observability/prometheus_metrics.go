package observability

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsClient implements MetricsClient using Prometheus collectors.
// Collectors are created lazily per metric name and label set and registered
// with the default registry via promauto.
type PrometheusMetricsClient struct {
	namespace string

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec

	mu sync.RWMutex
}

// NewPrometheusMetricsClient creates a new Prometheus metrics client
func NewPrometheusMetricsClient(namespace string) *PrometheusMetricsClient {
	client := &PrometheusMetricsClient{
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	client.registerDefaultMetrics()

	return client
}

// registerDefaultMetrics pre-registers the metrics every deployment scrapes,
// so dashboards see them at zero rather than only after first use.
func (c *PrometheusMetricsClient) registerDefaultMetrics() {
	c.getOrCreateCounter("cache_operations_total", "Total cache store operations", []string{"operation", "status"})
	c.getOrCreateHistogram("cache_operation_duration_seconds", "Cache store operation duration", []string{"operation", "status"})
	c.getOrCreateCounter("serp_provider_requests_total", "Total upstream SERP provider calls", []string{"provider", "status"})
	c.getOrCreateHistogram("serp_provider_request_duration_seconds", "Upstream SERP provider call duration", []string{"provider", "status"})
	c.getOrCreateCounter("rate_limit_decisions_total", "Rate limit admit/reject decisions", []string{"endpoint", "decision"})
}

// IncrementCounter increments a counter without labels
func (c *PrometheusMetricsClient) IncrementCounter(name string, value float64) {
	c.IncrementCounterWithLabels(name, value, nil)
}

// IncrementCounterWithLabels increments a counter with labels
func (c *PrometheusMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
	counter := c.getOrCreateCounter(name, fmt.Sprintf("Counter for %s", name), labelNames(labels))
	counter.With(prometheus.Labels(labels)).Add(value)
}

// RecordGauge records a gauge metric
func (c *PrometheusMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	gauge := c.getOrCreateGauge(name, fmt.Sprintf("Gauge for %s", name), labelNames(labels))
	gauge.With(prometheus.Labels(labels)).Set(value)
}

// RecordHistogram records a histogram metric
func (c *PrometheusMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {
	histogram := c.getOrCreateHistogram(name, fmt.Sprintf("Histogram for %s", name), labelNames(labels))
	histogram.With(prometheus.Labels(labels)).Observe(value)
}

// RecordCacheOperation records a cache store operation outcome
func (c *PrometheusMetricsClient) RecordCacheOperation(operation string, success bool, durationSeconds float64) {
	labels := map[string]string{
		"operation": operation,
		"status":    statusLabel(success),
	}
	c.IncrementCounterWithLabels("cache_operations_total", 1, labels)
	c.RecordHistogram("cache_operation_duration_seconds", durationSeconds, labels)
}

// RecordProviderOperation records an upstream SERP provider call outcome
func (c *PrometheusMetricsClient) RecordProviderOperation(provider string, success bool, durationSeconds float64) {
	labels := map[string]string{
		"provider": provider,
		"status":   statusLabel(success),
	}
	c.IncrementCounterWithLabels("serp_provider_requests_total", 1, labels)
	c.RecordHistogram("serp_provider_request_duration_seconds", durationSeconds, labels)
}

// Close implements MetricsClient.Close
func (c *PrometheusMetricsClient) Close() error {
	return nil
}

func (c *PrometheusMetricsClient) getOrCreateCounter(name, help string, labels []string) *prometheus.CounterVec {
	c.mu.RLock()
	counter, exists := c.counters[name]
	c.mu.RUnlock()
	if exists {
		return counter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if counter, exists = c.counters[name]; exists {
		return counter
	}

	counter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	c.counters[name] = counter
	return counter
}

func (c *PrometheusMetricsClient) getOrCreateGauge(name, help string, labels []string) *prometheus.GaugeVec {
	c.mu.RLock()
	gauge, exists := c.gauges[name]
	c.mu.RUnlock()
	if exists {
		return gauge
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gauge, exists = c.gauges[name]; exists {
		return gauge
	}

	gauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	c.gauges[name] = gauge
	return gauge
}

func (c *PrometheusMetricsClient) getOrCreateHistogram(name, help string, labels []string) *prometheus.HistogramVec {
	c.mu.RLock()
	histogram, exists := c.histograms[name]
	c.mu.RUnlock()
	if exists {
		return histogram
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if histogram, exists = c.histograms[name]; exists {
		return histogram
	}

	histogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labels)
	c.histograms[name] = histogram
	return histogram
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
