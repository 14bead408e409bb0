package serp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const defaultSerperBaseURL = "https://google.serper.dev"

// SerperClient calls the serper.dev search API
type SerperClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSerperClient creates a serper.dev provider
func NewSerperClient(apiKey string, httpClient *http.Client) *SerperClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SerperClient{
		apiKey:     apiKey,
		baseURL:    defaultSerperBaseURL,
		httpClient: httpClient,
	}
}

// ID implements Provider.ID
func (c *SerperClient) ID() ID {
	return ProviderSerper
}

// serperResponse is serper.dev's wire shape
type serperResponse struct {
	Organic []struct {
		Position  int    `json:"position"`
		Title     string `json:"title"`
		Link      string `json:"link"`
		Snippet   string `json:"snippet"`
		Date      string `json:"date"`
		Sitelinks []struct {
			Title string `json:"title"`
			Link  string `json:"link"`
		} `json:"sitelinks"`
	} `json:"organic"`
	PeopleAlsoAsk []struct {
		Question string `json:"question"`
		Snippet  string `json:"snippet"`
	} `json:"peopleAlsoAsk"`
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"relatedSearches"`
	SearchInformation struct {
		TotalResults int64 `json:"totalResults"`
	} `json:"searchInformation"`
}

// Search implements Provider.Search
func (c *SerperClient) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"q":   opts.Keyword,
		"gl":  opts.Country,
		"num": opts.Num,
	})
	if err != nil {
		return nil, &ProviderError{Provider: ProviderSerper, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Provider: ProviderSerper, Err: err}
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderSerper, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   ProviderSerper,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var body serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProviderError{Provider: ProviderSerper, Err: errors.Wrap(err, "malformed response")}
	}
	// A response without an organic section at all is structural breakage;
	// an empty list is a legitimate "no results" outcome.
	if body.Organic == nil {
		return nil, &ProviderError{Provider: ProviderSerper, Err: errors.New("response missing organic results section")}
	}

	return c.normalize(&body), nil
}

func (c *SerperClient) normalize(body *serperResponse) *SearchResult {
	result := &SearchResult{
		OrganicResults: make([]OrganicResult, 0, len(body.Organic)),
		RelatedQueries: make([]string, 0, len(body.RelatedSearches)),
		PeopleAlsoAsk:  make([]PeopleAlsoAsk, 0, len(body.PeopleAlsoAsk)),
		TotalResults:   body.SearchInformation.TotalResults,
	}

	for _, o := range body.Organic {
		r := OrganicResult{
			Position: o.Position,
			Title:    o.Title,
			URL:      o.Link,
			Snippet:  o.Snippet,
			Date:     o.Date,
		}
		for _, s := range o.Sitelinks {
			r.Sitelinks = append(r.Sitelinks, Sitelink{Title: s.Title, URL: s.Link})
		}
		result.OrganicResults = append(result.OrganicResults, r)
	}
	for _, q := range body.RelatedSearches {
		result.RelatedQueries = append(result.RelatedQueries, q.Query)
	}
	for _, p := range body.PeopleAlsoAsk {
		result.PeopleAlsoAsk = append(result.PeopleAlsoAsk, PeopleAlsoAsk{Question: p.Question, Snippet: p.Snippet})
	}
	return result
}
