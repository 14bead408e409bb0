package serp

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/observability"
	"github.com/seoforge/seoforge/pkg/retry"
)

// ErrInvalidInput rejects bad caller input before any provider or cache
// interaction; it is distinct from provider and infrastructure errors.
var ErrInvalidInput = errors.New("invalid input")

// Orchestrator defaults
const (
	DefaultProviderTimeout = 15 * time.Second
	DefaultResultCount     = 10

	// maxFailoverAttempts bounds total provider attempts for one request,
	// independent of per-provider retries.
	maxFailoverAttempts = 3
)

// Config configures the orchestrator
type Config struct {
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	ProbeCooldown   time.Duration `mapstructure:"probe_cooldown"`
	Retry           retry.Config  `mapstructure:"retry"`
}

// AnalyzeOptions are per-request knobs for AnalyzeKeyword
type AnalyzeOptions struct {
	Num            int
	ExcludeDomains []string
	SkipCache      bool
}

// Orchestrator retrieves SERP data with cache-aside lookups, provider
// failover and per-provider retry. It owns the canonical SearchResult for
// the duration of one retrieval; results are immutable once returned.
type Orchestrator struct {
	providers map[ID]Provider
	tracker   *HealthTracker
	facade    *cache.Facade
	retry     *retry.Policy
	timeout   time.Duration
	logger    observability.Logger
	metrics   observability.MetricsClient
}

// NewOrchestrator creates an orchestrator over the given providers. The
// tracker's priority order is the order of the providers slice.
func NewOrchestrator(providers []Provider, facade *cache.Facade, cfg Config,
	logger observability.Logger, metrics observability.MetricsClient) *Orchestrator {

	byID := make(map[ID]Provider, len(providers))
	priority := make([]ID, 0, len(providers))
	for _, p := range providers {
		byID[p.ID()] = p
		priority = append(priority, p.ID())
	}

	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}

	return &Orchestrator{
		providers: byID,
		tracker:   NewHealthTracker(priority, cfg.ProbeCooldown, logger),
		facade:    facade,
		retry:     retry.New(cfg.Retry),
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Tracker exposes provider health for the health reporting surface
func (o *Orchestrator) Tracker() *HealthTracker {
	return o.tracker
}

// AnalyzeKeyword returns the canonical SERP result for a keyword+location
// pair, serving from cache when fresh and otherwise attempting providers in
// priority order starting from the active one. Exhausting all providers
// surfaces ErrNoHealthyProviders; an empty result is never fabricated.
func (o *Orchestrator) AnalyzeKeyword(ctx context.Context, keyword, location string, opts AnalyzeOptions) (*SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || len(keyword) > 512 {
		return nil, errors.Wrap(ErrInvalidInput, "keyword must be non-empty and under 512 bytes")
	}
	loc := NormalizeLocation(location)

	if !opts.SkipCache {
		var cached SearchResult
		if o.facade.GetSERPResult(ctx, keyword, loc.Code, &cached) {
			o.logger.Debug("serp cache hit", map[string]interface{}{
				"keyword":  keyword,
				"location": loc.Code,
			})
			return &cached, nil
		}
	}

	num := opts.Num
	if num <= 0 {
		num = DefaultResultCount
	}
	searchOpts := SearchOptions{
		Keyword: keyword,
		Country: loc.CountryCode,
		Domain:  loc.GoogleDomain,
		Num:     num,
	}

	var lastErr error
	for attempt := 0; attempt < maxFailoverAttempts; attempt++ {
		id := o.tracker.Active()
		provider, ok := o.providers[id]
		if !ok {
			if _, err := o.tracker.Fail(id); err != nil {
				return nil, errors.Wrap(ErrNoHealthyProviders, "no providers configured")
			}
			continue
		}

		start := time.Now()
		var result *SearchResult
		err := o.retry.Execute(ctx, func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			r, err := provider.Search(callCtx, searchOpts)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
		duration := time.Since(start).Seconds()

		if err == nil {
			o.metrics.RecordProviderOperation(string(id), true, duration)
			o.tracker.Promote(id)

			final := postProcess(result, opts.ExcludeDomains)
			if !opts.SkipCache {
				o.facade.SetSERPResult(ctx, keyword, loc.Code, final)
			}
			return final, nil
		}

		o.metrics.RecordProviderOperation(string(id), false, duration)
		o.logger.Warn("search provider failed", map[string]interface{}{
			"provider": string(id),
			"keyword":  keyword,
			"attempt":  attempt + 1,
			"error":    err.Error(),
		})
		lastErr = err

		// Caller cancellation is not a provider fault; stop without
		// poisoning health state further.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if _, switchErr := o.tracker.Fail(id); switchErr != nil {
			return nil, errors.Wrapf(ErrNoHealthyProviders, "last provider error: %v", lastErr)
		}
	}

	return nil, errors.Wrapf(ErrNoHealthyProviders, "all %d attempts exhausted, last error: %v", maxFailoverAttempts, lastErr)
}

// CompareRegionalResults runs AnalyzeKeyword once per location,
// sequentially so upstream provider rate limits are respected, and collects
// the successes. Individual location failures are logged and skipped, never
// aborting the whole comparison.
func (o *Orchestrator) CompareRegionalResults(ctx context.Context, keyword string, locations []string) (map[string]*SearchResult, error) {
	if len(locations) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "at least one location is required")
	}

	results := make(map[string]*SearchResult, len(locations))
	for _, location := range locations {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		result, err := o.AnalyzeKeyword(ctx, keyword, location, AnalyzeOptions{})
		if err != nil {
			o.logger.Warn("regional comparison skipping location", map[string]interface{}{
				"keyword":  keyword,
				"location": location,
				"error":    err.Error(),
			})
			continue
		}
		results[NormalizeLocation(location).Code] = result
	}
	return results, nil
}
