package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/research-agent/pkg/types"
)

// --- mock backend ---

type mockBackend struct {
	name    string
	results map[string][]types.SearchResult
	errs    map[string]error
	delays  map[string]time.Duration
	panicOn string

	mu      sync.Mutex
	gotNums []int
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Search(_ context.Context, query string, numResults int) ([]types.SearchResult, error) {
	if m.panicOn != "" && query == m.panicOn {
		panic("mock provider exploded")
	}
	if d := m.delays[query]; d > 0 {
		time.Sleep(d)
	}

	m.mu.Lock()
	m.gotNums = append(m.gotNums, numResults)
	m.mu.Unlock()

	if err := m.errs[query]; err != nil {
		return nil, err
	}
	return m.results[query], nil
}

func hit(title, link string) types.SearchResult {
	return types.SearchResult{Title: title, Link: link, Snippet: "about " + title}
}

// --- Fanout ---

func TestFanoutPreservesQueryOrder(t *testing.T) {
	// The first query finishes last; slot order must still follow query order.
	backend := &mockBackend{
		name: "mock",
		results: map[string][]types.SearchResult{
			"slow query": {hit("S1", "https://example.com/s1")},
			"fast query": {hit("F1", "https://example.com/f1")},
		},
		delays: map[string]time.Duration{"slow query": 40 * time.Millisecond},
	}

	var buf bytes.Buffer
	lists := Fanout(context.Background(), backend, []string{"slow query", "fast query"}, 8, &buf)

	if len(lists) != 2 {
		t.Fatalf("len(lists) = %d, want 2", len(lists))
	}
	if len(lists[0]) != 1 || lists[0][0].Title != "S1" {
		t.Errorf("lists[0] = %+v, want the slow query's results in slot 0", lists[0])
	}
	if len(lists[1]) != 1 || lists[1][0].Title != "F1" {
		t.Errorf("lists[1] = %+v, want the fast query's results in slot 1", lists[1])
	}
}

func TestFanoutIsolatesFailedQuery(t *testing.T) {
	backend := &mockBackend{
		name: "mock",
		results: map[string][]types.SearchResult{
			"good": {hit("G1", "https://example.com/g1"), hit("G2", "https://example.com/g2")},
		},
		errs: map[string]error{"bad": fmt.Errorf("upstream 500")},
	}

	var buf bytes.Buffer
	lists := Fanout(context.Background(), backend, []string{"bad", "good"}, 8, &buf)

	if len(lists) != 2 {
		t.Fatalf("len(lists) = %d, want 2", len(lists))
	}
	if len(lists[0]) != 0 {
		t.Errorf("failed query slot = %+v, want empty", lists[0])
	}
	if len(lists[1]) != 2 {
		t.Errorf("sibling query returned %d results, want 2", len(lists[1]))
	}
	if !strings.Contains(buf.String(), "warning:") || !strings.Contains(buf.String(), "bad") {
		t.Errorf("expected warning naming the failed query, got %q", buf.String())
	}
}

func TestFanoutRecoversProviderPanic(t *testing.T) {
	backend := &mockBackend{
		name: "mock",
		results: map[string][]types.SearchResult{
			"calm": {hit("C1", "https://example.com/c1")},
		},
		panicOn: "explosive",
	}

	var buf bytes.Buffer
	lists := Fanout(context.Background(), backend, []string{"explosive", "calm"}, 8, &buf)

	if len(lists[0]) != 0 {
		t.Errorf("panicking query slot = %+v, want empty", lists[0])
	}
	if len(lists[1]) != 1 {
		t.Errorf("sibling query returned %d results, want 1", len(lists[1]))
	}
	if !strings.Contains(buf.String(), "panic") {
		t.Errorf("expected panic warning, got %q", buf.String())
	}
}

func TestFanoutPassesResultsPerQuery(t *testing.T) {
	backend := &mockBackend{name: "mock"}

	var buf bytes.Buffer
	Fanout(context.Background(), backend, []string{"a", "b", "c"}, 5, &buf)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.gotNums) != 3 {
		t.Fatalf("provider called %d times, want 3", len(backend.gotNums))
	}
	for _, n := range backend.gotNums {
		if n != 5 {
			t.Errorf("numResults = %d, want 5", n)
		}
	}
}

func TestFanoutNoQueries(t *testing.T) {
	backend := &mockBackend{name: "mock"}

	var buf bytes.Buffer
	lists := Fanout(context.Background(), backend, nil, 8, &buf)

	if len(lists) != 0 {
		t.Errorf("len(lists) = %d, want 0", len(lists))
	}
}

// --- Merge ---

func TestMergeDedupesByLink(t *testing.T) {
	shared := "https://example.com/shared"
	lists := [][]types.SearchResult{
		{
			{Title: "First sighting", Link: shared, Snippet: "from query one"},
			hit("A2", "https://example.com/a2"),
		},
		{
			{Title: "Second sighting", Link: shared, Snippet: "from query two"},
			hit("B2", "https://example.com/b2"),
		},
	}

	merged := Merge(lists)

	if len(merged) != 3 {
		t.Fatalf("len(merged) = %d, want 3", len(merged))
	}
	// First occurrence wins, including its metadata.
	if merged[0].Title != "First sighting" {
		t.Errorf("merged[0].Title = %q, want the first occurrence kept", merged[0].Title)
	}
	if merged[1].Link != "https://example.com/a2" || merged[2].Link != "https://example.com/b2" {
		t.Errorf("merge order = %q, %q; want query order then rank order",
			merged[1].Link, merged[2].Link)
	}
}

func TestMergeSkipsEmptyLinks(t *testing.T) {
	lists := [][]types.SearchResult{
		{
			{Title: "No link at all"},
			hit("Linked", "https://example.com/ok"),
		},
	}

	merged := Merge(lists)

	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1", len(merged))
	}
	if merged[0].Link != "https://example.com/ok" {
		t.Errorf("merged[0].Link = %q", merged[0].Link)
	}
}

func TestMergePreservesQueryThenRankOrder(t *testing.T) {
	lists := [][]types.SearchResult{
		{hit("A1", "https://example.com/a1"), hit("A2", "https://example.com/a2")},
		{hit("B1", "https://example.com/b1"), hit("B2", "https://example.com/b2")},
	}

	merged := Merge(lists)

	want := []string{
		"https://example.com/a1",
		"https://example.com/a2",
		"https://example.com/b1",
		"https://example.com/b2",
	}
	if len(merged) != len(want) {
		t.Fatalf("len(merged) = %d, want %d", len(merged), len(want))
	}
	for i, link := range want {
		if merged[i].Link != link {
			t.Errorf("merged[%d].Link = %q, want %q", i, merged[i].Link, link)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	lists := [][]types.SearchResult{
		{hit("A", "https://example.com/a"), hit("B", "https://example.com/b")},
		{hit("A again", "https://example.com/a")},
	}

	once := Merge(lists)
	twice := Merge([][]types.SearchResult{once})

	if len(once) != len(twice) {
		t.Fatalf("re-merge changed length: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("re-merge changed element %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

// --- Limit ---

func TestLimit(t *testing.T) {
	many := make([]types.SearchResult, 20)
	for i := range many {
		many[i] = hit(fmt.Sprintf("R%d", i), fmt.Sprintf("https://example.com/%d", i))
	}

	tests := []struct {
		name    string
		results []types.SearchResult
		max     int
		wantLen int
	}{
		{"under cap", many[:3], 15, 3},
		{"at cap", many[:15], 15, 15},
		{"over cap", many, 15, 15},
		{"zero cap means no limit", many, 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Limit(tt.results, tt.max)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			// Survivors must be the prefix, in order.
			for i := range got {
				if got[i].Link != tt.results[i].Link {
					t.Errorf("element %d reordered: %q", i, got[i].Link)
				}
			}
		})
	}
}

// --- Text cleanup ---

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"collapses whitespace", "hello\n\t  world ", "hello world"},
		{"strips tags", "<b>bold</b> and <em>emphasis</em>", "bold and emphasis"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanText(tt.in); got != tt.want {
				t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- SerpAPI backend ---

const sampleSerpJSON = `{
	"organic_results": [
		{
			"title": "Quantum Error Correction Advances",
			"link": "https://example.com/qec",
			"snippet": "Recent progress in <b>quantum</b> error correction.",
			"displayed_link": "www.example.com",
			"date": "Jan 5, 2026"
		},
		{
			"link": "https://example.com/untitled",
			"displayed_link": "blog.example.org"
		},
		{
			"title": "Result With No Link",
			"snippet": "should pass through with empty link"
		}
	]
}`

func TestSerpAPIBackendSearch(t *testing.T) {
	var gotQuery url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleSerpJSON))
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	b := &SerpAPIBackend{APIKey: "sk_test", UserAgent: "test/0.1", Client: ts.Client()}
	results, err := b.Search(context.Background(), "quantum error correction", 8)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}

	first := results[0]
	if first.Title != "Quantum Error Correction Advances" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Snippet != "Recent progress in quantum error correction." {
		t.Errorf("Snippet = %q, want HTML stripped", first.Snippet)
	}
	if first.Source != "www.example.com" || first.Date != "Jan 5, 2026" {
		t.Errorf("Source/Date = %q/%q", first.Source, first.Date)
	}

	if results[1].Title != placeholderTitle {
		t.Errorf("missing title = %q, want placeholder", results[1].Title)
	}
	if results[1].Snippet != placeholderSnippet {
		t.Errorf("missing snippet = %q, want placeholder", results[1].Snippet)
	}
	if results[2].Link != "" {
		t.Errorf("linkless result Link = %q, want empty passthrough", results[2].Link)
	}

	// Request parameters per the Google engine contract.
	if gotQuery.Get("q") != "quantum error correction" {
		t.Errorf("q = %q", gotQuery.Get("q"))
	}
	if gotQuery.Get("engine") != "google" || gotQuery.Get("safe") != "active" {
		t.Errorf("engine/safe = %q/%q", gotQuery.Get("engine"), gotQuery.Get("safe"))
	}
	if gotQuery.Get("num") != "8" || gotQuery.Get("api_key") != "sk_test" {
		t.Errorf("num/api_key = %q/%q", gotQuery.Get("num"), gotQuery.Get("api_key"))
	}
}

func TestSerpAPIBackendHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	old := serpAPIBase
	serpAPIBase = ts.URL
	defer func() { serpAPIBase = old }()

	b := &SerpAPIBackend{APIKey: "bad", Client: ts.Client()}
	_, err := b.Search(context.Background(), "anything", 8)
	if err == nil {
		t.Fatal("expected error for HTTP 401")
	}
}

func TestSerpAPIBackendEmptyQuery(t *testing.T) {
	b := &SerpAPIBackend{APIKey: "k"}
	_, err := b.Search(context.Background(), "", 8)
	if err == nil {
		t.Fatal("expected error for empty query")
	}
}

// --- Bing backend ---

const sampleBingJSON = `{
	"webPages": {
		"value": [
			{
				"name": "Protein Folding Review",
				"url": "https://example.com/folding",
				"snippet": "A survey of folding predictions.",
				"siteName": "Example Journal",
				"dateLastCrawled": "2026-01-10T08:00:00Z"
			},
			{
				"url": "https://example.com/bare"
			}
		]
	}
}`

func TestBingBackendSearch(t *testing.T) {
	var gotKey, gotCount string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotCount = r.URL.Query().Get("count")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleBingJSON))
	}))
	defer ts.Close()

	old := bingAPIBase
	bingAPIBase = ts.URL
	defer func() { bingAPIBase = old }()

	b := &BingBackend{APIKey: "bing_test", Client: ts.Client()}
	results, err := b.Search(context.Background(), "protein folding", 8)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if gotKey != "bing_test" {
		t.Errorf("Ocp-Apim-Subscription-Key = %q", gotKey)
	}
	if gotCount != "8" {
		t.Errorf("count = %q, want 8", gotCount)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Title != "Protein Folding Review" || results[0].Source != "Example Journal" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Title != placeholderTitle || results[1].Snippet != placeholderSnippet {
		t.Errorf("bare result = %+v, want placeholders", results[1])
	}
}

func TestBingBackendHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "key expired", http.StatusForbidden)
	}))
	defer ts.Close()

	old := bingAPIBase
	bingAPIBase = ts.URL
	defer func() { bingAPIBase = old }()

	b := &BingBackend{APIKey: "bad", Client: ts.Client()}
	_, err := b.Search(context.Background(), "anything", 8)
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}

// --- Factory ---

func TestNewBackendSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{provider: "", wantName: "serpapi"},
		{provider: "serpapi", wantName: "serpapi"},
		{provider: "bing", wantName: "bing"},
		{provider: "duckduckgo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("provider="+tt.provider, func(t *testing.T) {
			b, err := NewBackend(types.SearchConfig{Provider: tt.provider, APIKey: "k"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown provider")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend returned error: %v", err)
			}
			if b.Name() != tt.wantName {
				t.Errorf("backend name = %q, want %q", b.Name(), tt.wantName)
			}
		})
	}
}
