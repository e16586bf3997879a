// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent sequences the research pipeline: query expansion, concurrent
// web search, merge and capping, and answer synthesis.
// Implements: prd013-research-agent (R1-R4);
//
//	docs/ARCHITECTURE § Research Pipeline.
package agent

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/research-agent/internal/ai"
	"github.com/pdiddy/research-agent/internal/expand"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/internal/synth"
	"github.com/pdiddy/research-agent/pkg/types"
)

// State identifies a stage of a research run. A run moves expanding →
// searching → synthesizing → done; failed absorbs any run an internal error
// knocked off that path (R4.1).
type State string

const (
	StateExpanding    State = "expanding"
	StateSearching    State = "searching"
	StateSynthesizing State = "synthesizing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// degradedAnswer is the outcome text when the outer safety net caught an
// error none of the stage fallbacks absorbed (R4.3). It names no internals.
const degradedAnswer = "I apologize, but I encountered an error while researching your query. Please try again or rephrase your question."

// Default stage parameters, applied when the config leaves them zero.
const (
	defaultResultsPerQuery = 8
	defaultMaxSources      = 15
)

// Agent runs research queries against a language-model backend and a web
// search backend. One language model serves both expansion and synthesis.
// Runs share no state, so a single Agent may serve many queries (R1.5).
type Agent struct {
	AI     ai.Backend
	Search search.Backend
	Config types.PipelineConfig
}

// New returns an Agent over the given capability backends.
func New(aiBackend ai.Backend, searchBackend search.Backend, cfg types.PipelineConfig) *Agent {
	return &Agent{AI: aiBackend, Search: searchBackend, Config: cfg}
}

// Run executes the research pipeline for userQuery and always hands back an
// outcome (R1.1): every stage degrades on its own, and a deferred recover
// converts anything that still escapes into the degraded outcome (R4.2,
// R4.3). State transitions and stage warnings are written to w as progress.
func (a *Agent) Run(ctx context.Context, userQuery string, w io.Writer) (outcome types.ResearchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(w, "warning: research run aborted: %v\n", r)
			logState(w, StateFailed)
			outcome = degradedOutcome(userQuery)
		}
	}()

	query := strings.TrimSpace(userQuery)
	if query == "" {
		logState(w, StateFailed)
		return degradedOutcome(userQuery)
	}

	logState(w, StateExpanding)
	queries := expand.Expand(ctx, a.AI, query, w)

	logState(w, StateSearching)
	resultsPerQuery := a.Config.Search.ResultsPerQuery
	if resultsPerQuery <= 0 {
		resultsPerQuery = defaultResultsPerQuery
	}
	lists := search.Fanout(ctx, a.Search, queries, resultsPerQuery, w)

	maxSources := a.Config.Search.MaxSources
	if maxSources <= 0 {
		maxSources = defaultMaxSources
	}
	sources := search.Limit(search.Merge(lists), maxSources)

	logState(w, StateSynthesizing)
	answer := synth.Synthesize(ctx, a.AI, query, sources, a.Config.Synthesis, w)

	logState(w, StateDone)
	return types.ResearchOutcome{
		AnswerText:  answer,
		Sources:     sources,
		QueriesUsed: queries,
	}
}

// logState writes one progress line per state transition.
func logState(w io.Writer, s State) {
	fmt.Fprintf(w, "[%s]\n", s)
}

// degradedOutcome is the outer safety net's result: a generic explanation,
// no sources, and the original query as the sole query used (R4.3).
func degradedOutcome(userQuery string) types.ResearchOutcome {
	return types.ResearchOutcome{
		AnswerText:  degradedAnswer,
		Sources:     []types.SearchResult{},
		QueriesUsed: []string{userQuery},
	}
}
