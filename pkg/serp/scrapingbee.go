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

const defaultScrapingBeeBaseURL = "https://app.scrapingbee.com"

// ScrapingBeeClient calls the scrapingbee.com Google search API
type ScrapingBeeClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewScrapingBeeClient creates a scrapingbee.com provider
func NewScrapingBeeClient(apiKey string, httpClient *http.Client) *ScrapingBeeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ScrapingBeeClient{
		apiKey:     apiKey,
		baseURL:    defaultScrapingBeeBaseURL,
		httpClient: httpClient,
	}
}

// ID implements Provider.ID
func (c *ScrapingBeeClient) ID() ID {
	return ProviderScrapingBee
}

// scrapingBeeResponse is scrapingbee's wire shape. Field names differ from
// both other providers; notably URLs live under "url" and snippets under
// "description".
type scrapingBeeResponse struct {
	OrganicResults []struct {
		Position    int    `json:"position"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Date        string `json:"date"`
		Sitelinks   []struct {
			Title string `json:"title"`
			Link  string `json:"link"`
		} `json:"sitelinks"`
	} `json:"organic_results"`
	RelatedQueries []struct {
		Title string `json:"title"`
	} `json:"related_queries"`
	Questions []struct {
		Text string `json:"text"`
	} `json:"questions"`
	MetaData struct {
		NumberOfResults int64 `json:"number_of_results"`
	} `json:"meta_data"`
}

// Search implements Provider.Search
func (c *ScrapingBeeClient) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	params := url.Values{}
	params.Set("search", opts.Keyword)
	params.Set("country_code", opts.Country)
	params.Set("nb_results", strconv.Itoa(opts.Num))
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/store/google?"+params.Encode(), nil)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderScrapingBee, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderScrapingBee, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   ProviderScrapingBee,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var body scrapingBeeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProviderError{Provider: ProviderScrapingBee, Err: errors.Wrap(err, "malformed response")}
	}
	if body.OrganicResults == nil {
		return nil, &ProviderError{Provider: ProviderScrapingBee, Err: errors.New("response missing organic_results section")}
	}

	return c.normalize(&body), nil
}

func (c *ScrapingBeeClient) normalize(body *scrapingBeeResponse) *SearchResult {
	result := &SearchResult{
		OrganicResults: make([]OrganicResult, 0, len(body.OrganicResults)),
		RelatedQueries: make([]string, 0, len(body.RelatedQueries)),
		PeopleAlsoAsk:  make([]PeopleAlsoAsk, 0, len(body.Questions)),
		TotalResults:   body.MetaData.NumberOfResults,
	}

	for _, o := range body.OrganicResults {
		r := OrganicResult{
			Position: o.Position,
			Title:    o.Title,
			URL:      o.URL,
			Snippet:  o.Description,
			Date:     o.Date,
		}
		for _, s := range o.Sitelinks {
			r.Sitelinks = append(r.Sitelinks, Sitelink{Title: s.Title, URL: s.Link})
		}
		result.OrganicResults = append(result.OrganicResults, r)
	}
	for _, q := range body.RelatedQueries {
		result.RelatedQueries = append(result.RelatedQueries, q.Title)
	}
	for _, p := range body.Questions {
		result.PeopleAlsoAsk = append(result.PeopleAlsoAsk, PeopleAlsoAsk{Question: p.Text})
	}
	return result
}
