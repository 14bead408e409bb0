// Package retry provides the single retry policy shared by every external
// call site: exponential backoff with a bounded attempt count and a
// configurable set of retryable HTTP status codes.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// StatusCoder is implemented by errors that carry an HTTP-like status code;
// the policy uses it to decide retryability.
type StatusCoder interface {
	HTTPStatus() int
}

// Config contains retry configuration
type Config struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`

	// RetryableStatuses lists the HTTP status codes worth retrying against
	// the same upstream. Anything else is permanent for that upstream.
	RetryableStatuses []int `mapstructure:"retryable_statuses"`
}

// DefaultConfig returns the policy used for SERP provider calls
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialInterval:   200 * time.Millisecond,
		MaxInterval:       5 * time.Second,
		Multiplier:        2.0,
		RetryableStatuses: []int{429, 500, 502, 503, 504},
	}
}

// Policy executes functions under exponential backoff
type Policy struct {
	config   Config
	statuses map[int]bool
}

// New creates a retry policy, filling unset fields with defaults
func New(config Config) *Policy {
	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = defaults.InitialInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = defaults.MaxInterval
	}
	if config.Multiplier <= 1.0 {
		config.Multiplier = defaults.Multiplier
	}
	if config.RetryableStatuses == nil {
		config.RetryableStatuses = defaults.RetryableStatuses
	}

	statuses := make(map[int]bool, len(config.RetryableStatuses))
	for _, s := range config.RetryableStatuses {
		statuses[s] = true
	}

	return &Policy{config: config, statuses: statuses}
}

// Retryable reports whether err is worth retrying against the same upstream.
// Only errors exposing a retryable HTTP status qualify; everything else
// (malformed payloads, auth failures, timeouts) fails over instead.
func (p *Policy) Retryable(err error) bool {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return p.statuses[sc.HTTPStatus()]
	}
	return false
}

// Execute runs fn under the policy. Non-retryable errors return immediately;
// retryable ones are reattempted up to MaxAttempts with exponential backoff.
// Context cancellation aborts the wait between attempts.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.InitialInterval
	b.MaxInterval = p.config.MaxInterval
	b.Multiplier = p.config.Multiplier
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(p.config.MaxAttempts-1)), ctx)

	err := backoff.Retry(func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)

	// Unwrap the marker backoff adds to permanent errors so callers see
	// the original error chain.
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
