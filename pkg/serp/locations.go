package serp

import (
	"strings"
)

// Location is a normalized country/domain pair for provider calls
type Location struct {
	Code         string `json:"code"`
	CountryCode  string `json:"countryCode"`
	GoogleDomain string `json:"googleDomain"`
}

// DefaultLocation is used for unrecognized location inputs
var DefaultLocation = Location{Code: "us", CountryCode: "us", GoogleDomain: "google.com"}

// locationTable maps accepted location spellings to canonical pairs. Keys
// are matched case-insensitively after trimming.
var locationTable = map[string]Location{
	"us":             {Code: "us", CountryCode: "us", GoogleDomain: "google.com"},
	"usa":            {Code: "us", CountryCode: "us", GoogleDomain: "google.com"},
	"united states":  {Code: "us", CountryCode: "us", GoogleDomain: "google.com"},
	"uk":             {Code: "uk", CountryCode: "gb", GoogleDomain: "google.co.uk"},
	"united kingdom": {Code: "uk", CountryCode: "gb", GoogleDomain: "google.co.uk"},
	"gb":             {Code: "uk", CountryCode: "gb", GoogleDomain: "google.co.uk"},
	"ca":             {Code: "ca", CountryCode: "ca", GoogleDomain: "google.ca"},
	"canada":         {Code: "ca", CountryCode: "ca", GoogleDomain: "google.ca"},
	"au":             {Code: "au", CountryCode: "au", GoogleDomain: "google.com.au"},
	"australia":      {Code: "au", CountryCode: "au", GoogleDomain: "google.com.au"},
	"de":             {Code: "de", CountryCode: "de", GoogleDomain: "google.de"},
	"germany":        {Code: "de", CountryCode: "de", GoogleDomain: "google.de"},
	"fr":             {Code: "fr", CountryCode: "fr", GoogleDomain: "google.fr"},
	"france":         {Code: "fr", CountryCode: "fr", GoogleDomain: "google.fr"},
	"es":             {Code: "es", CountryCode: "es", GoogleDomain: "google.es"},
	"spain":          {Code: "es", CountryCode: "es", GoogleDomain: "google.es"},
	"it":             {Code: "it", CountryCode: "it", GoogleDomain: "google.it"},
	"italy":          {Code: "it", CountryCode: "it", GoogleDomain: "google.it"},
	"nl":             {Code: "nl", CountryCode: "nl", GoogleDomain: "google.nl"},
	"netherlands":    {Code: "nl", CountryCode: "nl", GoogleDomain: "google.nl"},
	"br":             {Code: "br", CountryCode: "br", GoogleDomain: "google.com.br"},
	"brazil":         {Code: "br", CountryCode: "br", GoogleDomain: "google.com.br"},
	"in":             {Code: "in", CountryCode: "in", GoogleDomain: "google.co.in"},
	"india":          {Code: "in", CountryCode: "in", GoogleDomain: "google.co.in"},
	"jp":             {Code: "jp", CountryCode: "jp", GoogleDomain: "google.co.jp"},
	"japan":          {Code: "jp", CountryCode: "jp", GoogleDomain: "google.co.jp"},
	"mx":             {Code: "mx", CountryCode: "mx", GoogleDomain: "google.com.mx"},
	"mexico":         {Code: "mx", CountryCode: "mx", GoogleDomain: "google.com.mx"},
}

// NormalizeLocation resolves a caller-supplied location string to a
// canonical country/domain pair, defaulting to the US when unrecognized.
func NormalizeLocation(location string) Location {
	key := strings.ToLower(strings.TrimSpace(location))
	if loc, ok := locationTable[key]; ok {
		return loc
	}
	return DefaultLocation
}
