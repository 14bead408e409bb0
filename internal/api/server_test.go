package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seoforge/seoforge/pkg/cache"
	"github.com/seoforge/seoforge/pkg/common/config"
	"github.com/seoforge/seoforge/pkg/health"
	"github.com/seoforge/seoforge/pkg/observability"
	"github.com/seoforge/seoforge/pkg/ratelimit"
	"github.com/seoforge/seoforge/pkg/retry"
	"github.com/seoforge/seoforge/pkg/serp"
)

type scriptedProvider struct {
	id    serp.ID
	err   error
	calls atomic.Int64
}

func (p *scriptedProvider) ID() serp.ID { return p.id }

func (p *scriptedProvider) Search(_ context.Context, _ serp.SearchOptions) (*serp.SearchResult, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &serp.SearchResult{
		OrganicResults: []serp.OrganicResult{
			{Position: 1, Title: "Scripted Search Result", URL: "https://example.com/hit"},
		},
		RelatedQueries: []string{},
		PeopleAlsoAsk:  []serp.PeopleAlsoAsk{},
		TotalResults:   1,
	}, nil
}

type testEnv struct {
	server   *Server
	provider *scriptedProvider
	store    *cache.Store
}

func newTestServer(t *testing.T, rateLimit int) *testEnv {
	t.Helper()

	logger := observability.NewNoopLogger()
	metrics := observability.NewNoopMetricsClient()

	store, err := cache.NewStore(cache.StoreConfig{
		DisableRedis:   true,
		MaxMemoryItems: 256,
	}, logger, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	facade := cache.NewFacade(store)
	limiter := ratelimit.NewLimiter(store, ratelimit.Config{
		WindowSize:   time.Minute,
		DefaultLimit: rateLimit,
	}, logger, metrics)

	provider := &scriptedProvider{id: serp.ProviderSerper}
	orchestrator := serp.NewOrchestrator([]serp.Provider{provider}, facade, serp.Config{
		ProviderTimeout: time.Second,
		Retry:           retry.Config{MaxAttempts: 1},
	}, logger, metrics)

	reporter := health.NewReporter(store, orchestrator.Tracker(), nil)

	server := NewServer(config.APIConfig{
		ListenAddress: ":0",
		EnableMetrics: false,
	}, Deps{
		Store:        store,
		Facade:       facade,
		Limiter:      limiter,
		Orchestrator: orchestrator,
		Generator:    nil,
		Reporter:     reporter,
		Logger:       logger,
		Metrics:      metrics,
	})

	return &testEnv{server: server, provider: provider, store: store}
}

func doRequest(t *testing.T, env *testEnv, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(UserIDHeader, "user-1")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	env := newTestServer(t, 100)

	rec := doRequest(t, env, http.MethodGet, "/api/v1/serp/analyze?keyword=best+coffee&location=uk", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Keyword  string            `json:"keyword"`
		Location string            `json:"location"`
		Result   serp.SearchResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "best coffee", payload.Keyword)
	assert.Equal(t, "uk", payload.Location)
	require.Len(t, payload.Result.OrganicResults, 1)
	assert.Equal(t, "Scripted Search Result", payload.Result.OrganicResults[0].Title)

	t.Run("Second Request Hits Cache", func(t *testing.T) {
		before := env.provider.calls.Load()
		rec := doRequest(t, env, http.MethodGet, "/api/v1/serp/analyze?keyword=best+coffee&location=uk", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, before, env.provider.calls.Load())
	})

	t.Run("Request ID Header Is Set", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodGet, "/api/v1/serp/analyze?keyword=best+coffee", "")
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})
}

func TestAnalyzeEndpointValidation(t *testing.T) {
	env := newTestServer(t, 100)

	rec := doRequest(t, env, http.MethodGet, "/api/v1/serp/analyze?keyword=", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, env, http.MethodGet, "/api/v1/serp/analyze?keyword=coffee&num=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeEndpointProvidersDown(t *testing.T) {
	env := newTestServer(t, 100)
	env.provider.err = &serp.ProviderError{
		Provider:   serp.ProviderSerper,
		StatusCode: http.StatusServiceUnavailable,
		Err:        assert.AnError,
	}

	rec := doRequest(t, env, http.MethodGet, "/api/v1/serp/analyze?keyword=down", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unavailable")
}

func TestCompareEndpoint(t *testing.T) {
	env := newTestServer(t, 100)

	rec := doRequest(t, env, http.MethodGet, "/api/v1/serp/compare?keyword=coffee&locations=us,uk", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Regions map[string]serp.SearchResult `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Len(t, payload.Regions, 2)
	assert.Contains(t, payload.Regions, "us")
	assert.Contains(t, payload.Regions, "uk")

	rec = doRequest(t, env, http.MethodGet, "/api/v1/serp/compare?keyword=coffee", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPerUserRateLimit(t *testing.T) {
	env := newTestServer(t, 3)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, env, http.MethodGet, "/api/v1/cache/stats", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d should be admitted", i+1)
	}

	rec := doRequest(t, env, http.MethodGet, "/api/v1/cache/stats", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.Contains(t, rec.Body.String(), "resetTime")

	t.Run("Other Users Unaffected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
		req.Header.Set(UserIDHeader, "user-2")
		recorder := httptest.NewRecorder()
		env.server.Router().ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Admin Reset Restores Quota", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodPost, "/api/v1/ratelimit/reset",
			`{"userId": "user-1", "endpoint": "/api/v1/cache/stats"}`)
		// The reset request itself is rate limited against its own
		// endpoint, not the one being reset.
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, env, http.MethodGet, "/api/v1/cache/stats", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCacheAdminEndpoints(t *testing.T) {
	env := newTestServer(t, 100)

	// Warm the cache, then invalidate and confirm the provider is hit again.
	rec := doRequest(t, env, http.MethodGet, "/api/v1/serp/analyze?keyword=espresso", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, env.provider.calls.Load())

	rec = doRequest(t, env, http.MethodDelete, "/api/v1/cache/keyword/espresso", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, env, http.MethodGet, "/api/v1/serp/analyze?keyword=espresso", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, env.provider.calls.Load())

	t.Run("Stats And Reset", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodGet, "/api/v1/cache/stats", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Stats         cache.CacheStats `json:"stats"`
			UsingFallback bool             `json:"usingFallback"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.True(t, payload.UsingFallback)
		assert.NotZero(t, payload.Stats.TotalRequests)

		rec = doRequest(t, env, http.MethodPost, "/api/v1/cache/stats/reset", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, env.store.Stats().Snapshot().TotalRequests)
	})
}

func TestArtifactCacheEndpoints(t *testing.T) {
	env := newTestServer(t, 100)

	t.Run("Competitor Analysis", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodPut, "/api/v1/cache/competitor",
			`{"keyword": "espresso", "location": "uk", "analysis": {"topDomain": "example.com"}}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, env, http.MethodGet, "/api/v1/cache/competitor?keyword=espresso&location=uk", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "topDomain")

		rec = doRequest(t, env, http.MethodGet, "/api/v1/cache/competitor?keyword=unknown", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Scraped Content", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodPut, "/api/v1/cache/scraped",
			`{"url": "https://example.com/page", "content": {"title": "A Page"}}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, env, http.MethodGet, "/api/v1/cache/scraped?url=https%3A%2F%2Fexample.com%2Fpage", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "A Page")
	})

	t.Run("Validation", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodPut, "/api/v1/cache/competitor", `{"keyword": ""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(t, env, http.MethodGet, "/api/v1/cache/scraped", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGenerateEndpointDisabled(t *testing.T) {
	env := newTestServer(t, 100)

	rec := doRequest(t, env, http.MethodPost, "/api/v1/content/generate", `{"prompt": "write"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestServer(t, 100)

	rec := doRequest(t, env, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusDegraded, report.Status)
	assert.True(t, report.UsingFallback)
	assert.Equal(t, "serper", report.Providers.Active)

	rec = doRequest(t, env, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, env, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	t.Run("Unhealthy Reports 503", func(t *testing.T) {
		for i := 0; i < 11; i++ {
			env.store.Stats().RecordError()
		}
		rec := doRequest(t, env, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		rec = doRequest(t, env, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestReadinessReconnectsDegradedStore(t *testing.T) {
	logger := observability.NewNoopLogger()
	metrics := observability.NewNoopMetricsClient()

	mr := miniredis.RunT(t)
	store, err := cache.NewStore(cache.StoreConfig{
		Redis:          cache.RedisConfig{Address: mr.Addr()},
		MaxMemoryItems: 64,
	}, logger, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	facade := cache.NewFacade(store)
	limiter := ratelimit.NewLimiter(store, ratelimit.Config{
		WindowSize:   time.Minute,
		DefaultLimit: 100,
	}, logger, metrics)
	provider := &scriptedProvider{id: serp.ProviderSerper}
	orchestrator := serp.NewOrchestrator([]serp.Provider{provider}, facade, serp.Config{
		ProviderTimeout: time.Second,
		Retry:           retry.Config{MaxAttempts: 1},
	}, logger, metrics)

	server := NewServer(config.APIConfig{ListenAddress: ":0"}, Deps{
		Store:        store,
		Facade:       facade,
		Limiter:      limiter,
		Orchestrator: orchestrator,
		Reporter:     health.NewReporter(store, orchestrator.Tracker(), nil),
		Logger:       logger,
		Metrics:      metrics,
	})

	probe := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return rec
	}

	// Degrade the store with an outage.
	mr.Close()
	var out string
	store.Get(context.Background(), "warm", &out)
	require.True(t, store.UsingFallback())

	// While Redis is still down the probe reports ready on the fallback
	// tier and the store stays degraded.
	rec := probe()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.UsingFallback())

	// Once Redis returns, the next probe restores the primary.
	require.NoError(t, mr.Restart())
	rec = probe()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, store.UsingFallback())
}
