// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package expand turns one user query into a small set of refined search
// queries using a language-model backend.
// Implements: prd010-expansion (R1-R3);
//
//	docs/ARCHITECTURE § Query Expansion.
package expand

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/pdiddy/research-agent/internal/ai"
)

// maxQueries caps how many expanded queries are accepted from the model (R1.3).
const maxQueries = 5

// expansionPromptTmpl is the prompt sent to the language model. It asks for
// a JSON array of search queries so the reply can be decoded strictly.
// Per prd010-expansion R1.1.
var expansionPromptTmpl = template.Must(template.New("expansion").Parse(`As a research assistant, analyze this user query and generate 3-5 optimized search queries that would help find the most relevant academic articles, reports, and authoritative sources.

User Query: "{{.Query}}"

Generate search queries that are:
1. Specific and targeted for academic/professional research
2. Include relevant keywords and synonyms
3. Suitable for finding recent articles, reports, and studies

Format as a JSON array of strings:
["query1", "query2", "query3"]
`))

// Expand derives 1-5 search queries from userQuery via one language-model
// call (R1.1, R1.2). It never fails: a backend error or an unusable reply
// falls back to [userQuery] with a warning on w (R3.1, R3.2), so the
// pipeline always has at least one query to search.
func Expand(ctx context.Context, backend ai.Backend, userQuery string, w io.Writer) []string {
	prompt, err := renderPrompt(userQuery)
	if err != nil {
		fmt.Fprintf(w, "warning: expansion prompt failed, using original query: %v\n", err)
		return []string{userQuery}
	}

	reply, err := backend.Generate(ctx, prompt)
	if err != nil {
		fmt.Fprintf(w, "warning: query expansion failed, using original query: %v\n", err)
		return []string{userQuery}
	}

	queries, err := parseQueries(reply)
	if err != nil {
		fmt.Fprintf(w, "warning: query expansion reply unusable, using original query: %v\n", err)
		return []string{userQuery}
	}

	return queries
}

// parseQueries decodes the model reply into the query list (R2.1-R2.4). The
// reply may wrap the JSON array in a Markdown code fence with an optional
// json language tag; anything that then fails to decode as an array of
// strings is an error rather than a guess.
func parseQueries(reply string) ([]string, error) {
	text := stripFence(strings.TrimSpace(reply))

	var queries []string
	if err := json.Unmarshal([]byte(text), &queries); err != nil {
		return nil, fmt.Errorf("decoding query list: %w", err)
	}

	var usable []string
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			usable = append(usable, q)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no usable queries in reply")
	}
	if len(usable) > maxQueries {
		usable = usable[:maxQueries]
	}

	return usable, nil
}

// stripFence removes a Markdown code fence around the payload, along with a
// leading "json" language tag (R2.1).
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return text
	}
	inner := strings.TrimSpace(parts[1])
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

// renderPrompt executes the expansion prompt template with the user query.
func renderPrompt(userQuery string) (string, error) {
	var buf bytes.Buffer
	if err := expansionPromptTmpl.Execute(&buf, struct{ Query string }{Query: userQuery}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
