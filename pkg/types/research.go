// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-agent pipeline.
// Implements: prd011-web-search (SearchResult, R2.1, R3.1);
//
//	prd013-research-agent (ResearchOutcome, R1.2-R1.4).
//
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

// SearchResult represents one web search hit returned by a search provider.
// Per prd011-web-search R2.1, each result carries display metadata plus a
// link that serves as the result's identity during merging (R3.1).
type SearchResult struct {
	// Title is the result title. Providers substitute "No Title" when the
	// payload omits one.
	Title string `json:"title" yaml:"title"`

	// Link is the result URL. It is the identity key for deduplication;
	// results with an empty Link never survive a merge.
	Link string `json:"link" yaml:"link"`

	// Snippet is the short description shown under the result. Providers
	// substitute "No description available" when the payload omits one.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Source is the displayed origin of the result (e.g. "www.nature.com").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Date is the result date as reported by the provider, when present.
	Date string `json:"date,omitempty" yaml:"date,omitempty"`
}

// ResearchOutcome is the terminal value of one research run. Per
// prd013-research-agent R1.2 it is the only value a run hands back; there is
// no partial or streaming state, and every run produces one even when every
// provider call failed.
type ResearchOutcome struct {
	// AnswerText is the synthesized answer, or a fallback explanation when
	// synthesis (or the run as a whole) degraded.
	AnswerText string `json:"answer" yaml:"answer"`

	// Sources is the deduplicated, capped result set the answer drew from,
	// in first-seen order.
	Sources []SearchResult `json:"sources" yaml:"sources"`

	// QueriesUsed lists the search queries actually fanned out, in the order
	// they were issued.
	QueriesUsed []string `json:"queries_used" yaml:"queries_used"`
}
