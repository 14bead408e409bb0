// Package serp provides resilient retrieval of search-engine results pages:
// interchangeable upstream providers behind one interface, per-process
// provider health tracking with automatic failover, and normalization of
// every provider's response shape into one canonical result.
package serp

// ContentQuality is a coarse, best-effort classification of an organic
// result's content richness. It is heuristic, not authoritative.
type ContentQuality string

// Content quality buckets
const (
	QualityHigh   ContentQuality = "high"
	QualityMedium ContentQuality = "medium"
	QualityLow    ContentQuality = "low"
)

// Sitelink is a secondary link attached to an organic result
type Sitelink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// OrganicResult is one canonical organic search result. Immutable once
// returned from the orchestrator; safe to cache as-is.
type OrganicResult struct {
	Position       int            `json:"position"`
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	Domain         string         `json:"domain"`
	Snippet        string         `json:"snippet,omitempty"`
	Date           string         `json:"date,omitempty"`
	Sitelinks      []Sitelink     `json:"sitelinks,omitempty"`
	IsOrganic      bool           `json:"isOrganic"`
	ContentQuality ContentQuality `json:"contentQuality"`
}

// PeopleAlsoAsk is one "people also ask" entry
type PeopleAlsoAsk struct {
	Question string `json:"question"`
	Snippet  string `json:"snippet,omitempty"`
}

// SearchResult is the canonical SERP shape every provider response is
// normalized into. An empty OrganicResults slice is a legitimate outcome
// ("no organic results found") and is distinct from a retrieval failure.
type SearchResult struct {
	OrganicResults []OrganicResult `json:"organicResults"`
	RelatedQueries []string        `json:"relatedQueries"`
	PeopleAlsoAsk  []PeopleAlsoAsk `json:"peopleAlsoAsk"`
	TotalResults   int64           `json:"totalResults"`
}
