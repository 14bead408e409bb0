package observability

// NoopMetricsClient is a MetricsClient that discards everything; used in
// tests and when metrics are disabled in config.
type NoopMetricsClient struct{}

// NewNoopMetricsClient creates a new NoopMetricsClient
func NewNoopMetricsClient() MetricsClient {
	return &NoopMetricsClient{}
}

// IncrementCounter implements MetricsClient.IncrementCounter
func (c *NoopMetricsClient) IncrementCounter(name string, value float64) {}

// IncrementCounterWithLabels implements MetricsClient.IncrementCounterWithLabels
func (c *NoopMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
}

// RecordGauge implements MetricsClient.RecordGauge
func (c *NoopMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {}

// RecordHistogram implements MetricsClient.RecordHistogram
func (c *NoopMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {}

// RecordCacheOperation implements MetricsClient.RecordCacheOperation
func (c *NoopMetricsClient) RecordCacheOperation(operation string, success bool, durationSeconds float64) {
}

// RecordProviderOperation implements MetricsClient.RecordProviderOperation
func (c *NoopMetricsClient) RecordProviderOperation(provider string, success bool, durationSeconds float64) {
}

// Close implements MetricsClient.Close
func (c *NoopMetricsClient) Close() error {
	return nil
}
