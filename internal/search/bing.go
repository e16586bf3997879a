// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// bingAPIBase is the Bing Web Search v7 endpoint. Package-level var for test
// substitution.
var bingAPIBase = "https://api.bing.microsoft.com/v7.0/search"

// BingBackend queries the Bing Web Search v7 API (R2.3).
type BingBackend struct {
	APIKey    string
	UserAgent string
	Client    *http.Client
}

// Name returns the backend identifier.
func (b *BingBackend) Name() string { return "bing" }

// Search runs one query against Bing and maps the web pages answer to the
// unified result shape (R2.1-R2.5).
func (b *BingBackend) Search(ctx context.Context, query string, numResults int) ([]types.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if numResults <= 0 {
		numResults = 8
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(numResults))
	params.Set("safeSearch", "Moderate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bingAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.APIKey)
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("calling Bing API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Bing API returned %d", resp.StatusCode)
	}

	var br bingResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("decoding Bing response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(br.WebPages.Value))
	for _, page := range br.WebPages.Value {
		results = append(results, types.SearchResult{
			Title:   orPlaceholder(cleanText(page.Name), placeholderTitle),
			Link:    page.URL,
			Snippet: orPlaceholder(cleanText(page.Snippet), placeholderSnippet),
			Source:  page.SiteName,
			Date:    page.DateLastCrawled,
		})
	}

	return results, nil
}

// bingResponse is the subset of the Bing v7 payload the pipeline uses.
type bingResponse struct {
	WebPages bingWebPages `json:"webPages"`
}

// bingWebPages is the web pages answer block.
type bingWebPages struct {
	Value []bingWebPage `json:"value"`
}

// bingWebPage is one web page hit.
type bingWebPage struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	Snippet         string `json:"snippet"`
	SiteName        string `json:"siteName"`
	DateLastCrawled string `json:"dateLastCrawled"`
}
