package serp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDomain(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/page":       "example.com",
		"http://example.com":                 "example.com",
		"https://blog.example.co.uk/a/b?q=1": "blog.example.co.uk",
		"https://example.com:8080/path":      "example.com",
		"example.com/path":                   "example.com",
		"https://WWW.Example.COM/Page#frag":  "example.com",
		"https://user@example.com/path":      "example.com",
	}
	for input, want := range cases {
		assert.Equal(t, want, ExtractDomain(input), "input %q", input)
	}
}

func TestIsTrulyOrganic(t *testing.T) {
	assert.True(t, isTrulyOrganic("Best Coffee Guide", "https://example.com/coffee"))
	assert.False(t, isTrulyOrganic("Buy Coffee", "https://www.googleadservices.com/pagead/aclk"))
	assert.False(t, isTrulyOrganic("Coffee", "https://shopping.google.com/product/1"))
	assert.False(t, isTrulyOrganic("Ad: Cheap Coffee", "https://example.com"))
	assert.False(t, isTrulyOrganic("[Sponsored] Coffee Deals", "https://example.com"))
}

func TestClassifyContentQuality(t *testing.T) {
	t.Run("High", func(t *testing.T) {
		r := &OrganicResult{
			Title:     "The Complete Guide to Espresso Brewing",
			Snippet:   strings.Repeat("rich snippet text ", 10),
			Date:      "2025-03-01",
			Sitelinks: []Sitelink{{Title: "Recipes", URL: "https://example.com/recipes"}},
		}
		assert.Equal(t, QualityHigh, classifyContentQuality(r))
	})

	t.Run("Medium", func(t *testing.T) {
		r := &OrganicResult{
			Title:   "Espresso Brewing Guide for Beginners",
			Snippet: "short",
		}
		assert.Equal(t, QualityMedium, classifyContentQuality(r))
	})

	t.Run("Low", func(t *testing.T) {
		r := &OrganicResult{
			Title:   "Espresso",
			Snippet: "short",
		}
		assert.Equal(t, QualityLow, classifyContentQuality(r))
	})
}

func TestPostProcess(t *testing.T) {
	input := &SearchResult{
		OrganicResults: []OrganicResult{
			{Position: 1, Title: "Keep Me Around For Testing", URL: "https://www.example.com/a"},
			{Position: 2, Title: "Excluded Domain Entry", URL: "https://www.competitor.com/b"},
			{Position: 3, Title: "Shopping Entry", URL: "https://shopping.google.com/x"},
			{Position: 4, Title: "Another Keeper Entry Here", URL: "https://other.org/c"},
		},
		TotalResults: 1000,
	}

	out := postProcess(input, []string{"www.competitor.com"})

	assert.Len(t, out.OrganicResults, 2)
	assert.Equal(t, "example.com", out.OrganicResults[0].Domain)
	assert.Equal(t, 1, out.OrganicResults[0].Position)
	assert.Equal(t, "other.org", out.OrganicResults[1].Domain)
	assert.Equal(t, 4, out.OrganicResults[1].Position)

	for _, r := range out.OrganicResults {
		assert.True(t, r.IsOrganic)
		assert.NotEmpty(t, r.ContentQuality)
	}

	// Collection fields are never nil so callers and JSON encoding see
	// empty lists, not null.
	assert.NotNil(t, out.RelatedQueries)
	assert.NotNil(t, out.PeopleAlsoAsk)
	assert.EqualValues(t, 1000, out.TotalResults)
}

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, "us", NormalizeLocation("US").Code)
	assert.Equal(t, "google.co.uk", NormalizeLocation("United Kingdom").GoogleDomain)
	assert.Equal(t, "gb", NormalizeLocation(" uk ").CountryCode)
	assert.Equal(t, DefaultLocation, NormalizeLocation("narnia"))
	assert.Equal(t, DefaultLocation, NormalizeLocation(""))
}
