// Package observability provides unified logging and metrics for the
// seoforge services. All components receive their Logger and MetricsClient
// by injection; nothing in this package is a process-wide singleton.
package observability

import (
	"time"
)

// LogLevel defines log message severity
type LogLevel string

// Log levels
const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// Logger defines the interface for structured logging
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Fatal(msg string, fields map[string]interface{})

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	WithPrefix(prefix string) Logger
}

// MetricsClient defines the interface for metrics collection
type MetricsClient interface {
	IncrementCounter(name string, value float64)
	IncrementCounterWithLabels(name string, value float64, labels map[string]string)
	RecordGauge(name string, value float64, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)

	// RecordCacheOperation records the outcome of a single cache store call
	// (operation is get/set/delete/increment/clear).
	RecordCacheOperation(operation string, success bool, durationSeconds float64)

	// RecordProviderOperation records a single upstream SERP provider call.
	RecordProviderOperation(provider string, success bool, durationSeconds float64)

	Close() error
}

// LoggingConfig holds the configuration for logging
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the configuration for metrics
type MetricsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Namespace string        `mapstructure:"namespace"`
	Interval  time.Duration `mapstructure:"interval"`
}
