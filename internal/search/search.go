// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search fans research queries out to a web search provider and
// merges the per-query hits into one deduplicated, capped result set.
// Implements: prd011-web-search (R1-R4);
//
//	docs/ARCHITECTURE § Search Fanout.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Placeholders substituted by providers when a payload omits a display field (R2.4).
const (
	placeholderTitle   = "No Title"
	placeholderSnippet = "No description available"
)

// Backend searches a single web search API. Each provider (SerpAPI, Bing)
// implements this interface per the Strategy pattern (R1.2).
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, numResults int) ([]types.SearchResult, error)
}

// NewBackend constructs the configured search provider. An empty provider
// selects SerpAPI.
func NewBackend(cfg types.SearchConfig) (Backend, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case "", "serpapi":
		return &SerpAPIBackend{APIKey: cfg.APIKey, UserAgent: cfg.UserAgent, Client: client}, nil
	case "bing":
		return &BingBackend{APIKey: cfg.APIKey, UserAgent: cfg.UserAgent, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown search provider %q (supported: serpapi, bing)", cfg.Provider)
	}
}

// Fanout issues one provider search per query, all concurrently, and returns
// one result list per query in the caller's query order (R1.1). A query whose
// search fails yields an empty list and a warning on w; sibling queries are
// unaffected (R1.3). Fanout itself never fails.
func Fanout(ctx context.Context, backend Backend, queries []string, resultsPerQuery int, w io.Writer) [][]types.SearchResult {
	type queryResult struct {
		index   int
		query   string
		results []types.SearchResult
		err     error
	}

	ch := make(chan queryResult, len(queries))
	var wg sync.WaitGroup

	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			// A panicking provider degrades its own slot, not the run.
			defer func() {
				if r := recover(); r != nil {
					ch <- queryResult{index: i, query: q, err: fmt.Errorf("provider panic: %v", r)}
				}
			}()
			results, err := backend.Search(ctx, q, resultsPerQuery)
			ch <- queryResult{index: i, query: q, results: results, err: err}
		}(i, q)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	// Indexed slots: output order follows query order, not completion order.
	lists := make([][]types.SearchResult, len(queries))
	for qr := range ch {
		if qr.err != nil {
			fmt.Fprintf(w, "warning: search for %q failed: %v\n", qr.query, qr.err)
			continue
		}
		lists[qr.index] = qr.results
	}

	return lists
}

// Merge flattens per-query result lists into one sequence deduplicated by
// link (R3.1-R3.3). Lists are walked in query order with inner order
// preserved; a result joins the output only when its link is non-empty and
// unseen, so the first occurrence of a URL wins.
func Merge(lists [][]types.SearchResult) []types.SearchResult {
	seen := make(map[string]bool)
	var merged []types.SearchResult

	for _, list := range lists {
		for _, r := range list {
			if r.Link == "" || seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			merged = append(merged, r)
		}
	}

	return merged
}

// Limit truncates results to at most max entries (R4.1). Pure prefix
// truncation: survivors keep their merge order, and max <= 0 means no cap.
func Limit(results []types.SearchResult, max int) []types.SearchResult {
	if max > 0 && len(results) > max {
		return results[:max]
	}
	return results
}

// htmlTagPattern matches HTML tags providers sometimes leave in titles and
// snippets.
var htmlTagPattern = regexp.MustCompile(`<[^<]+?>`)

// cleanText strips HTML tags and collapses whitespace runs so provider
// payload fields render cleanly in prompts and terminal output (R2.5).
func cleanText(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// orPlaceholder returns s, or placeholder when s is empty (R2.4).
func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
