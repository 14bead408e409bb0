package serp

import (
	"strings"
)

// adMarkers are URL and title fragments that identify sponsored, shopping
// or otherwise non-organic entries some providers leak into organic lists.
var adMarkers = []string{
	"googleadservices.com",
	"doubleclick.net",
	"/aclk?",
	"shopping.google.",
	"google.com/shopping",
}

var adTitlePrefixes = []string{
	"ad:",
	"sponsored:",
	"[ad]",
	"[sponsored]",
}

// ExtractDomain returns the bare registrable host of a URL: scheme, path,
// query and a leading "www." are stripped. Best-effort string surgery; it
// deliberately avoids rejecting odd provider URLs.
func ExtractDomain(rawURL string) string {
	domain := rawURL
	if idx := strings.Index(domain, "://"); idx >= 0 {
		domain = domain[idx+3:]
	}
	if idx := strings.IndexAny(domain, "/?#"); idx >= 0 {
		domain = domain[:idx]
	}
	if idx := strings.Index(domain, "@"); idx >= 0 {
		domain = domain[idx+1:]
	}
	if idx := strings.Index(domain, ":"); idx >= 0 {
		domain = domain[:idx]
	}
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	return domain
}

// isTrulyOrganic rejects entries whose URL or title matches known
// ad/shopping/sponsored markers. Heuristic, not authoritative.
func isTrulyOrganic(title, url string) bool {
	lowerURL := strings.ToLower(url)
	for _, marker := range adMarkers {
		if strings.Contains(lowerURL, marker) {
			return false
		}
	}

	lowerTitle := strings.ToLower(strings.TrimSpace(title))
	for _, prefix := range adTitlePrefixes {
		if strings.HasPrefix(lowerTitle, prefix) {
			return false
		}
	}
	return true
}

// classifyContentQuality buckets a result by snippet length, presence of a
// date, presence of sitelinks and title length. Coarse scoring only;
// downstream consumers must treat it as best-effort.
func classifyContentQuality(r *OrganicResult) ContentQuality {
	score := 0
	if len(r.Snippet) >= 120 {
		score++
	}
	if r.Date != "" {
		score++
	}
	if len(r.Sitelinks) > 0 {
		score++
	}
	if titleLen := len(r.Title); titleLen >= 20 && titleLen <= 70 {
		score++
	}

	switch {
	case score >= 3:
		return QualityHigh
	case score >= 1:
		return QualityMedium
	default:
		return QualityLow
	}
}

// postProcess applies the provider-independent filters to a normalized
// result: domain extraction, caller-specified domain exclusion, the organic
// heuristic, and content-quality classification. Providers' own positions
// are preserved on surviving entries.
func postProcess(result *SearchResult, excludeDomains []string) *SearchResult {
	excluded := make(map[string]bool, len(excludeDomains))
	for _, d := range excludeDomains {
		excluded[strings.TrimPrefix(strings.ToLower(d), "www.")] = true
	}

	filtered := make([]OrganicResult, 0, len(result.OrganicResults))
	for _, r := range result.OrganicResults {
		r.Domain = ExtractDomain(r.URL)
		if excluded[r.Domain] {
			continue
		}
		if !isTrulyOrganic(r.Title, r.URL) {
			continue
		}
		r.IsOrganic = true
		r.ContentQuality = classifyContentQuality(&r)
		filtered = append(filtered, r)
	}

	out := &SearchResult{
		OrganicResults: filtered,
		RelatedQueries: result.RelatedQueries,
		PeopleAlsoAsk:  result.PeopleAlsoAsk,
		TotalResults:   result.TotalResults,
	}
	if out.RelatedQueries == nil {
		out.RelatedQueries = []string{}
	}
	if out.PeopleAlsoAsk == nil {
		out.PeopleAlsoAsk = []PeopleAlsoAsk{}
	}
	return out
}
