// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// FormatText writes the answer followed by a numbered source table (R1.4).
func FormatText(outcome types.ResearchOutcome, w io.Writer) {
	fmt.Fprintln(w, outcome.AnswerText)
	fmt.Fprintln(w)

	if len(outcome.Sources) == 0 {
		fmt.Fprintln(w, "No sources found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-24s  %s\n", "Rank", "Title", "Source", "Link")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range outcome.Sources {
		fmt.Fprintf(w, "%-4d  %-50s  %-24s  %s\n",
			i+1, truncate(r.Title, 50), truncate(r.Source, 24), r.Link)
	}

	fmt.Fprintf(w, "\n%d sources", len(outcome.Sources))
	if n := len(outcome.QueriesUsed); n > 0 {
		fmt.Fprintf(w, " from %d search queries", n)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes the outcome as indented JSON (R1.4).
func FormatJSON(outcome types.ResearchOutcome, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
