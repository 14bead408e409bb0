package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	return NewFacade(newTestStore(t, StoreConfig{DisableRedis: true}))
}

func TestKeyDeterminism(t *testing.T) {
	t.Run("SERP Keys", func(t *testing.T) {
		a := SERPResultKey("best coffee", "US")
		b := SERPResultKey("best coffee", "US")
		assert.Equal(t, a, b)
		assert.Equal(t, "serp:best-coffee:us", a)
	})

	t.Run("Keyword Normalization", func(t *testing.T) {
		assert.Equal(t, SERPResultKey("  Best   Coffee ", "us"), SERPResultKey("best coffee", "us"))
		assert.Equal(t, "best-coffee-beans", NormalizeKeyword("Best\tCoffee  Beans"))
	})

	t.Run("Keyword Glob Metacharacters Stripped", func(t *testing.T) {
		// Keyword segments feed Clear patterns, so path.Match specials
		// must never survive into a key.
		assert.Equal(t, "coffee-beans", NormalizeKeyword("coffee* bea?ns[]"))
		assert.Equal(t, "coffee", NormalizeKeyword(`c\offee`))
		for _, meta := range []string{"*", "?", "[", "]", `\`} {
			assert.NotContains(t, SERPResultKey("best *?[ coffee", "us"), meta)
		}
	})

	t.Run("Distinct Inputs Distinct Keys", func(t *testing.T) {
		assert.NotEqual(t, SERPResultKey("coffee", "us"), SERPResultKey("coffee", "uk"))
		assert.NotEqual(t, SERPResultKey("coffee", "us"), SERPResultKey("tea", "us"))
	})

	t.Run("AI Response Keys", func(t *testing.T) {
		a := AIResponseKey("write a meta description for coffee shops", "gpt-4")
		b := AIResponseKey("write a meta description for coffee shops", "gpt-4")
		assert.Equal(t, a, b)
		assert.True(t, strings.HasPrefix(a, "openai:"))
		assert.True(t, strings.HasSuffix(a, ":gpt-4"))
		// Encoded prompt segment is bounded regardless of prompt length.
		assert.LessOrEqual(t, len(a), len("openai:")+50+len(":gpt-4"))
	})

	t.Run("No Glob Metacharacters", func(t *testing.T) {
		// Keys must stay pattern-safe for Clear; the URL-safe base64
		// alphabet guarantees that for encoded segments.
		key := ScrapedContentKey("https://example.com/path?a=1&b=2")
		assert.NotContains(t, key, "*")
		assert.NotContains(t, key, "?")
		assert.NotContains(t, key, "/")
	})

	t.Run("Rate Limit Keys", func(t *testing.T) {
		key := RateLimitKey("user1", "/api/search", 12345)
		assert.Equal(t, "ratelimit:user1:api_search:12345", key)
	})
}

func TestFacadeRoundtrips(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	t.Run("SERP Results", func(t *testing.T) {
		require.True(t, f.SetSERPResult(ctx, "coffee", "us", testPayload{ID: 1}))
		var out testPayload
		assert.True(t, f.GetSERPResult(ctx, "coffee", "us", &out))
		assert.Equal(t, 1, out.ID)

		// Same semantic input, different spelling, same entry.
		assert.True(t, f.GetSERPResult(ctx, " Coffee ", "US", &out))
	})

	t.Run("AI Responses", func(t *testing.T) {
		require.True(t, f.SetAIResponse(ctx, "prompt", "gpt-4", "generated text"))
		var out string
		assert.True(t, f.GetAIResponse(ctx, "prompt", "gpt-4", &out))
		assert.Equal(t, "generated text", out)
	})

	t.Run("Scraped Content", func(t *testing.T) {
		require.True(t, f.SetScrapedContent(ctx, "https://example.com", "<html>"))
		var out string
		assert.True(t, f.GetScrapedContent(ctx, "https://example.com", &out))
	})

	t.Run("Generated Content", func(t *testing.T) {
		require.True(t, f.SetGeneratedContent(ctx, "coffee", "meta-description", "desc"))
		var out string
		assert.True(t, f.GetGeneratedContent(ctx, "coffee", "meta-description", &out))
	})

	t.Run("Competitor Analysis", func(t *testing.T) {
		require.True(t, f.SetCompetitorAnalysis(ctx, "coffee", "us", testPayload{ID: 2}))
		var out testPayload
		assert.True(t, f.GetCompetitorAnalysis(ctx, "coffee", "us", &out))
	})

	t.Run("Analytics", func(t *testing.T) {
		require.True(t, f.SetAnalytics(ctx, "tenant-1", "2025-06-01", testPayload{ID: 3}))
		var out testPayload
		assert.True(t, f.GetAnalytics(ctx, "tenant-1", "2025-06-01", &out))
	})
}

func TestInvalidateKeyword(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	require.True(t, f.SetSERPResult(ctx, "coffee", "us", testPayload{ID: 1}))
	require.True(t, f.SetSERPResult(ctx, "coffee", "uk", testPayload{ID: 2}))
	require.True(t, f.SetGeneratedContent(ctx, "coffee", "meta", "m"))
	require.True(t, f.SetCompetitorAnalysis(ctx, "coffee", "us", testPayload{ID: 3}))
	require.True(t, f.SetSERPResult(ctx, "tea", "us", testPayload{ID: 4}))
	require.True(t, f.SetScrapedContent(ctx, "https://example.com", "<html>"))

	assert.True(t, f.InvalidateKeyword(ctx, "Coffee"))

	var out testPayload
	var s string
	assert.False(t, f.GetSERPResult(ctx, "coffee", "us", &out))
	assert.False(t, f.GetSERPResult(ctx, "coffee", "uk", &out))
	assert.False(t, f.GetGeneratedContent(ctx, "coffee", "meta", &s))
	assert.False(t, f.GetCompetitorAnalysis(ctx, "coffee", "us", &out))

	// Other keywords and non-keyword categories survive.
	assert.True(t, f.GetSERPResult(ctx, "tea", "us", &out))
	assert.True(t, f.GetScrapedContent(ctx, "https://example.com", &s))
}

func TestInvalidateKeywordWithGlobInput(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	require.True(t, f.SetSERPResult(ctx, "coffee", "us", testPayload{ID: 1}))
	require.True(t, f.SetSERPResult(ctx, "tea", "us", testPayload{ID: 2}))

	// A hostile keyword must not widen the sweep to other keywords, and
	// an unbalanced character class must not abort the pattern sweep.
	assert.True(t, f.InvalidateKeyword(ctx, "*"))
	assert.True(t, f.InvalidateKeyword(ctx, "[zzz"))

	var out testPayload
	assert.True(t, f.GetSERPResult(ctx, "coffee", "us", &out))
	assert.True(t, f.GetSERPResult(ctx, "tea", "us", &out))

	// The same hostile strings round-trip as ordinary keywords.
	require.True(t, f.SetSERPResult(ctx, "c[a]t*", "us", testPayload{ID: 3}))
	assert.True(t, f.GetSERPResult(ctx, "c[a]t*", "us", &out))
	assert.Equal(t, 3, out.ID)
	assert.True(t, f.InvalidateKeyword(ctx, "c[a]t*"))
	assert.False(t, f.GetSERPResult(ctx, "c[a]t*", "us", &out))
}

func TestTTLPolicyTable(t *testing.T) {
	// The policy table is an operational contract; lock the values in.
	assert.Equal(t, time.Hour, TTLSERPResults)
	assert.Equal(t, 2*time.Hour, TTLAIResponses)
	assert.Equal(t, 24*time.Hour, TTLScrapedContent)
	assert.Equal(t, 30*time.Minute, TTLGeneratedContent)
	assert.Equal(t, 6*time.Hour, TTLCompetitorAnalysis)
	assert.Equal(t, time.Minute, TTLRateLimitWindow)
	assert.Equal(t, 24*time.Hour, TTLAnalytics)
}
