package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

const defaultSerpAPIBaseURL = "https://serpapi.com"

// SerpAPIClient calls the serpapi.com search API
type SerpAPIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSerpAPIClient creates a serpapi.com provider
func NewSerpAPIClient(apiKey string, httpClient *http.Client) *SerpAPIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SerpAPIClient{
		apiKey:     apiKey,
		baseURL:    defaultSerpAPIBaseURL,
		httpClient: httpClient,
	}
}

// ID implements Provider.ID
func (c *SerpAPIClient) ID() ID {
	return ProviderSerpAPI
}

// serpAPIResponse is serpapi.com's wire shape
type serpAPIResponse struct {
	OrganicResults []struct {
		Position  int    `json:"position"`
		Title     string `json:"title"`
		Link      string `json:"link"`
		Snippet   string `json:"snippet"`
		Date      string `json:"date"`
		Sitelinks struct {
			Inline []struct {
				Title string `json:"title"`
				Link  string `json:"link"`
			} `json:"inline"`
		} `json:"sitelinks"`
	} `json:"organic_results"`
	RelatedQuestions []struct {
		Question string `json:"question"`
		Snippet  string `json:"snippet"`
	} `json:"related_questions"`
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"related_searches"`
	SearchInformation struct {
		TotalResults int64 `json:"total_results"`
	} `json:"search_information"`
}

// Search implements Provider.Search
func (c *SerpAPIClient) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", opts.Keyword)
	params.Set("gl", opts.Country)
	params.Set("google_domain", opts.Domain)
	params.Set("num", strconv.Itoa(opts.Num))
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderSerpAPI, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderSerpAPI, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   ProviderSerpAPI,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var body serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProviderError{Provider: ProviderSerpAPI, Err: errors.Wrap(err, "malformed response")}
	}
	if body.OrganicResults == nil {
		return nil, &ProviderError{Provider: ProviderSerpAPI, Err: errors.New("response missing organic_results section")}
	}

	return c.normalize(&body), nil
}

func (c *SerpAPIClient) normalize(body *serpAPIResponse) *SearchResult {
	result := &SearchResult{
		OrganicResults: make([]OrganicResult, 0, len(body.OrganicResults)),
		RelatedQueries: make([]string, 0, len(body.RelatedSearches)),
		PeopleAlsoAsk:  make([]PeopleAlsoAsk, 0, len(body.RelatedQuestions)),
		TotalResults:   body.SearchInformation.TotalResults,
	}

	for _, o := range body.OrganicResults {
		r := OrganicResult{
			Position: o.Position,
			Title:    o.Title,
			URL:      o.Link,
			Snippet:  o.Snippet,
			Date:     o.Date,
		}
		for _, s := range o.Sitelinks.Inline {
			r.Sitelinks = append(r.Sitelinks, Sitelink{Title: s.Title, URL: s.Link})
		}
		result.OrganicResults = append(result.OrganicResults, r)
	}
	for _, q := range body.RelatedSearches {
		result.RelatedQueries = append(result.RelatedQueries, q.Query)
	}
	for _, p := range body.RelatedQuestions {
		result.PeopleAlsoAsk = append(result.PeopleAlsoAsk, PeopleAlsoAsk{Question: p.Question, Snippet: p.Snippet})
	}
	return result
}
