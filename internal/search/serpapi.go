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

// serpAPIBase is the SerpAPI endpoint. Package-level var for test substitution.
var serpAPIBase = "https://serpapi.com/search"

// SerpAPIBackend queries SerpAPI's Google engine (R2.2). Safe search stays
// on and rate-limited calls are retried by the shared HTTP helper.
type SerpAPIBackend struct {
	APIKey    string
	UserAgent string
	Client    *http.Client
}

// Name returns the backend identifier.
func (b *SerpAPIBackend) Name() string { return "serpapi" }

// Search runs one Google query through SerpAPI and maps the organic results
// to the unified result shape (R2.1-R2.5).
func (b *SerpAPIBackend) Search(ctx context.Context, query string, numResults int) ([]types.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if numResults <= 0 {
		numResults = 8
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", b.APIKey)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(numResults))
	params.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serpAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("calling SerpAPI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SerpAPI returned %d", resp.StatusCode)
	}

	var sr serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding SerpAPI response: %w", err)
	}

	results := make([]types.SearchResult, 0, len(sr.OrganicResults))
	for _, item := range sr.OrganicResults {
		results = append(results, types.SearchResult{
			Title:   orPlaceholder(cleanText(item.Title), placeholderTitle),
			Link:    item.Link,
			Snippet: orPlaceholder(cleanText(item.Snippet), placeholderSnippet),
			Source:  item.DisplayedLink,
			Date:    item.Date,
		})
	}

	return results, nil
}

// serpResponse is the subset of the SerpAPI payload the pipeline uses.
type serpResponse struct {
	OrganicResults []serpOrganicResult `json:"organic_results"`
}

// serpOrganicResult is one organic hit in a SerpAPI response.
type serpOrganicResult struct {
	Title         string `json:"title"`
	Link          string `json:"link"`
	Snippet       string `json:"snippet"`
	DisplayedLink string `json:"displayed_link"`
	Date          string `json:"date"`
}
