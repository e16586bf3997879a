// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth turns a user query plus a merged result set into one
// natural-language answer via a language-model backend.
// Implements: prd012-synthesis (R1-R3);
//
//	docs/ARCHITECTURE § Answer Synthesis.
package synth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/pdiddy/research-agent/internal/ai"
	"github.com/pdiddy/research-agent/pkg/types"
)

// defaultMaxPromptResults caps how many results the prompt enumerates when
// the config does not say otherwise (R1.2).
const defaultMaxPromptResults = 10

// synthesisPromptTmpl is the prompt sent to the language model. The sources
// block enumerates the merged results; the instructions pin the register and
// length of the answer. Per prd012-synthesis R1.1, R1.3.
var synthesisPromptTmpl = template.Must(template.New("synthesis").Parse(`As a research assistant helping writers and researchers, synthesize the following search results into a comprehensive, well-structured response for the user's query.

User Query: "{{.Query}}"

Search Results:
{{.Sources}}
Instructions:
1. Provide a clear, informative response that directly addresses the user's query
2. Organize information logically with clear sections if needed
3. Highlight key findings, trends, or insights from the sources
4. Be objective and cite-focused (don't include actual citations, just synthesize)
5. End with a brief summary of the most valuable resources found
6. Keep the response research-focused and professional
7. If the query is about recent events or developments, emphasize the most current information

Write a comprehensive response (200-400 words):
`))

// fallbackAnswerFormat is the fixed degraded answer. It quotes the user's
// query verbatim and points at the source list that is still returned
// alongside it (R3.1, R3.2).
const fallbackAnswerFormat = "I found several relevant sources for your query about '%s'. Please review the sources below for detailed information."

// FallbackAnswer returns the degraded answer used when synthesis cannot run.
func FallbackAnswer(userQuery string) string {
	return fmt.Sprintf(fallbackAnswerFormat, userQuery)
}

// Synthesize builds the synthesis prompt from the merged results and asks
// the backend for a 200-400 word answer (R1.1). It never fails: a backend
// error or an empty reply yields the fixed fallback answer with a warning on
// w, never a lost run (R3.1).
func Synthesize(ctx context.Context, backend ai.Backend, userQuery string, results []types.SearchResult, cfg types.SynthesisConfig, w io.Writer) string {
	prompt, err := renderPrompt(userQuery, results, cfg.MaxPromptResults)
	if err != nil {
		fmt.Fprintf(w, "warning: synthesis prompt failed, using fallback answer: %v\n", err)
		return FallbackAnswer(userQuery)
	}

	reply, err := backend.Generate(ctx, prompt)
	if err != nil {
		fmt.Fprintf(w, "warning: synthesis failed, using fallback answer: %v\n", err)
		return FallbackAnswer(userQuery)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		fmt.Fprintln(w, "warning: synthesis returned empty text, using fallback answer")
		return FallbackAnswer(userQuery)
	}

	return reply
}

// enumerateSources formats the numbered source block embedded in the prompt:
// title, snippet, and URL per entry, capped at max results (R1.2).
func enumerateSources(results []types.SearchResult, max int) string {
	if max <= 0 {
		max = defaultMaxPromptResults
	}
	if len(results) > max {
		results = results[:max]
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   URL: %s\n\n", i+1, r.Title, r.Snippet, r.Link)
	}
	return b.String()
}

// renderPrompt executes the synthesis prompt template.
func renderPrompt(userQuery string, results []types.SearchResult, maxResults int) (string, error) {
	data := struct {
		Query   string
		Sources string
	}{
		Query:   userQuery,
		Sources: enumerateSources(results, maxResults),
	}

	var buf bytes.Buffer
	if err := synthesisPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
