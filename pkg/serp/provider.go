package serp

import (
	"context"
	"fmt"
)

// ID identifies one upstream SERP provider
type ID string

// Known providers, in failover priority order
const (
	ProviderSerper      ID = "serper"
	ProviderSerpAPI     ID = "serpapi"
	ProviderScrapingBee ID = "scrapingbee"
)

// DefaultPriority is the deterministic failover order
var DefaultPriority = []ID{ProviderSerper, ProviderSerpAPI, ProviderScrapingBee}

// SearchOptions are the inputs to one provider call. Country and Domain are
// already normalized by the orchestrator's location table.
type SearchOptions struct {
	Keyword string
	Country string
	Domain  string
	Num     int
}

// Provider is the capability every upstream implements: one search call
// returning the canonical result shape. Each implementation owns the
// normalization of its provider-specific payload; the orchestrator never
// sees a raw response.
type Provider interface {
	ID() ID
	Search(ctx context.Context, opts SearchOptions) (*SearchResult, error)
}

// ProviderError is a failed provider call. StatusCode carries the upstream
// HTTP status when one exists (0 for transport and decode failures) and
// drives the retry policy's retryability decision.
type ProviderError struct {
	Provider   ID
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// HTTPStatus implements retry.StatusCoder
func (e *ProviderError) HTTPStatus() int {
	return e.StatusCode
}
