// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// OutcomeFile is the on-disk representation of one research run. The
// researcher can save a run to a file and reload or import it later without
// re-querying providers.
// Implements: prd013-research-agent R5.1, R5.2.
type OutcomeFile struct {
	Query   string                `yaml:"query"`
	Config  OutcomeFileConfig     `yaml:"config"`
	Outcome types.ResearchOutcome `yaml:"outcome"`
	Summary OutcomeSummary        `yaml:"summary"`
}

// OutcomeFileConfig stores the run configuration that produced the outcome.
// API keys are deliberately not part of it.
type OutcomeFileConfig struct {
	AIProvider      string `yaml:"ai_provider,omitempty"`
	Model           string `yaml:"model,omitempty"`
	SearchProvider  string `yaml:"search_provider,omitempty"`
	ResultsPerQuery int    `yaml:"results_per_query"`
	MaxSources      int    `yaml:"max_sources"`
}

// OutcomeSummary stores run statistics and a timestamp.
type OutcomeSummary struct {
	Queries   int       `yaml:"queries"`
	Sources   int       `yaml:"sources"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteOutcomeFile saves a research run to a YAML file.
func WriteOutcomeFile(path, query string, cfg types.PipelineConfig, outcome types.ResearchOutcome) error {
	of := OutcomeFile{
		Query: query,
		Config: OutcomeFileConfig{
			AIProvider:      cfg.AI.Provider,
			Model:           cfg.AI.Model,
			SearchProvider:  cfg.Search.Provider,
			ResultsPerQuery: cfg.Search.ResultsPerQuery,
			MaxSources:      cfg.Search.MaxSources,
		},
		Outcome: outcome,
		Summary: OutcomeSummary{
			Queries:   len(outcome.QueriesUsed),
			Sources:   len(outcome.Sources),
			Timestamp: time.Now(),
		},
	}

	data, err := yaml.Marshal(&of)
	if err != nil {
		return fmt.Errorf("marshaling outcome file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadOutcomeFile loads a previously saved research run from disk.
func ReadOutcomeFile(path string) (*OutcomeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outcome file: %w", err)
	}
	var of OutcomeFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return nil, fmt.Errorf("parsing outcome file: %w", err)
	}
	if of.Query == "" {
		return nil, fmt.Errorf("outcome file %s has no query", path)
	}
	return &of, nil
}
