package cache

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// TTL policy table. Changing any of these is an operational behavior change:
// every data category's freshness contract lives here and nowhere else.
const (
	TTLSERPResults        = 1 * time.Hour
	TTLAIResponses        = 2 * time.Hour
	TTLScrapedContent     = 24 * time.Hour
	TTLGeneratedContent   = 30 * time.Minute
	TTLCompetitorAnalysis = 6 * time.Hour
	TTLRateLimitWindow    = 1 * time.Minute
	TTLAnalytics          = 24 * time.Hour
)

// Facade provides one thin get/set pair per data category, each pinning the
// category's TTL and key shape. No logic beyond Store calls lives here.
type Facade struct {
	store *Store
}

// NewFacade creates a façade over the given store
func NewFacade(store *Store) *Facade {
	return &Facade{store: store}
}

// Store exposes the underlying store for health reporting and admin surfaces
func (f *Facade) Store() *Store {
	return f.store
}

// globMeta strips the path.Match metacharacters. Keyword segments feed
// Clear patterns, so a keyword containing them would otherwise widen the
// sweep or make the pattern malformed.
var globMeta = strings.NewReplacer("*", "", "?", "", "[", "", "]", "", `\`, "")

// NormalizeKeyword canonicalizes a keyword for key construction: lowercased,
// trimmed, glob metacharacters removed, inner whitespace collapsed to single
// hyphens. Identical semantic inputs always produce identical keys.
func NormalizeKeyword(keyword string) string {
	keyword = globMeta.Replace(strings.ToLower(keyword))
	return strings.Join(strings.Fields(keyword), "-")
}

// SERPResultKey builds the cache key for SERP results of a keyword+location pair
func SERPResultKey(keyword, location string) string {
	return fmt.Sprintf("serp:%s:%s", NormalizeKeyword(keyword), strings.ToLower(location))
}

// AIResponseKey builds the cache key for an AI completion. The prompt is
// base64-encoded (URL alphabet, so no glob metacharacters) and truncated:
// prompts sharing a 50-char prefix share an entry, which is acceptable for
// the templated prompts this system issues.
func AIResponseKey(prompt, model string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(prompt))
	if len(encoded) > 50 {
		encoded = encoded[:50]
	}
	return fmt.Sprintf("openai:%s:%s", encoded, model)
}

// ScrapedContentKey builds the cache key for scraped page content
func ScrapedContentKey(url string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(url))
	if len(encoded) > 64 {
		encoded = encoded[:64]
	}
	return fmt.Sprintf("scraped:%s", encoded)
}

// GeneratedContentKey builds the cache key for generated SEO content
func GeneratedContentKey(keyword, contentType string) string {
	return fmt.Sprintf("content:%s:%s", NormalizeKeyword(keyword), contentType)
}

// CompetitorAnalysisKey builds the cache key for a competitor analysis
func CompetitorAnalysisKey(keyword, location string) string {
	return fmt.Sprintf("competitor:%s:%s", NormalizeKeyword(keyword), strings.ToLower(location))
}

// AnalyticsKey builds the cache key for per-tenant analytics rollups
func AnalyticsKey(tenantID, date string) string {
	return fmt.Sprintf("analytics:%s:%s", tenantID, date)
}

// RateLimitKey builds the counter key for one user+endpoint+window triple.
// Path separators in the endpoint are flattened so keys stay glob-safe.
func RateLimitKey(userID, endpoint string, windowID int64) string {
	endpoint = strings.ReplaceAll(strings.Trim(endpoint, "/"), "/", "_")
	return fmt.Sprintf("ratelimit:%s:%s:%d", userID, endpoint, windowID)
}

// GetSERPResult reads a cached SERP result into dest
func (f *Facade) GetSERPResult(ctx context.Context, keyword, location string, dest interface{}) bool {
	return f.store.Get(ctx, SERPResultKey(keyword, location), dest)
}

// SetSERPResult caches a SERP result for one hour
func (f *Facade) SetSERPResult(ctx context.Context, keyword, location string, result interface{}) bool {
	return f.store.Set(ctx, SERPResultKey(keyword, location), result, TTLSERPResults)
}

// GetAIResponse reads a cached AI completion
func (f *Facade) GetAIResponse(ctx context.Context, prompt, model string, dest interface{}) bool {
	return f.store.Get(ctx, AIResponseKey(prompt, model), dest)
}

// SetAIResponse caches an AI completion for two hours
func (f *Facade) SetAIResponse(ctx context.Context, prompt, model string, response interface{}) bool {
	return f.store.Set(ctx, AIResponseKey(prompt, model), response, TTLAIResponses)
}

// GetScrapedContent reads cached scraped page content
func (f *Facade) GetScrapedContent(ctx context.Context, url string, dest interface{}) bool {
	return f.store.Get(ctx, ScrapedContentKey(url), dest)
}

// SetScrapedContent caches scraped page content for a day
func (f *Facade) SetScrapedContent(ctx context.Context, url string, content interface{}) bool {
	return f.store.Set(ctx, ScrapedContentKey(url), content, TTLScrapedContent)
}

// GetGeneratedContent reads cached generated SEO content
func (f *Facade) GetGeneratedContent(ctx context.Context, keyword, contentType string, dest interface{}) bool {
	return f.store.Get(ctx, GeneratedContentKey(keyword, contentType), dest)
}

// SetGeneratedContent caches generated SEO content for thirty minutes
func (f *Facade) SetGeneratedContent(ctx context.Context, keyword, contentType string, content interface{}) bool {
	return f.store.Set(ctx, GeneratedContentKey(keyword, contentType), content, TTLGeneratedContent)
}

// GetCompetitorAnalysis reads a cached competitor analysis
func (f *Facade) GetCompetitorAnalysis(ctx context.Context, keyword, location string, dest interface{}) bool {
	return f.store.Get(ctx, CompetitorAnalysisKey(keyword, location), dest)
}

// SetCompetitorAnalysis caches a competitor analysis for six hours
func (f *Facade) SetCompetitorAnalysis(ctx context.Context, keyword, location string, analysis interface{}) bool {
	return f.store.Set(ctx, CompetitorAnalysisKey(keyword, location), analysis, TTLCompetitorAnalysis)
}

// GetAnalytics reads a cached per-tenant analytics rollup
func (f *Facade) GetAnalytics(ctx context.Context, tenantID, date string, dest interface{}) bool {
	return f.store.Get(ctx, AnalyticsKey(tenantID, date), dest)
}

// SetAnalytics caches a per-tenant analytics rollup for a day
func (f *Facade) SetAnalytics(ctx context.Context, tenantID, date string, rollup interface{}) bool {
	return f.store.Set(ctx, AnalyticsKey(tenantID, date), rollup, TTLAnalytics)
}

// InvalidateKeyword clears every keyword-scoped category for a keyword, for
// manual cache-busting workflows.
func (f *Facade) InvalidateKeyword(ctx context.Context, keyword string) bool {
	kw := NormalizeKeyword(keyword)

	ok := true
	for _, pattern := range []string{
		fmt.Sprintf("serp:%s:*", kw),
		fmt.Sprintf("content:%s:*", kw),
		fmt.Sprintf("competitor:%s:*", kw),
	} {
		if !f.store.Clear(ctx, pattern) {
			ok = false
		}
	}
	return ok
}
