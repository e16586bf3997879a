package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/agent"
	"github.com/pdiddy/research-agent/internal/ai"
	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/internal/search"
	"github.com/pdiddy/research-agent/internal/secrets"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "research-agent/0.1"
)

var researchCmd = &cobra.Command{
	Use:   "research [question...]",
	Short: "Answer a research question with sourced web results",
	Long: `Research expands the question into focused search queries, runs them
concurrently against the configured search provider, and synthesizes the
merged results into an answer with sources.

The pipeline degrades rather than fails: if the LLM or the search provider
is unavailable, the original question and whatever sources were found are
used instead.`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("ai-provider", "", "LLM provider: gemini or openai (default gemini)")
	researchCmd.Flags().String("ai-model", "", "LLM model name (default per provider)")
	researchCmd.Flags().String("ai-key", "", "LLM API key (overrides config and .secrets/)")
	researchCmd.Flags().String("search-provider", "", "search provider: serpapi or bing (default serpapi)")
	researchCmd.Flags().String("search-key", "", "search API key (overrides config and .secrets/)")
	researchCmd.Flags().Int("results-per-query", 0, "results requested per search query (default 8)")
	researchCmd.Flags().Int("max-sources", 0, "maximum merged sources kept for synthesis (default 15)")
	researchCmd.Flags().Duration("timeout", 0, "HTTP request timeout for search calls (default 60s)")
	researchCmd.Flags().Bool("json", false, "output the outcome as JSON")
	researchCmd.Flags().String("save", "", "write the outcome to a YAML file at this path")
	researchCmd.Flags().Bool("no-history", false, "do not record this run in the history database")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a research question, e.g. research-agent research \"impact of microplastics on soil\"")
	}
	query := strings.Join(args, " ")

	cfg := researchConfig(cmd)
	if cfg.AI.APIKey == "" {
		fmt.Fprintf(os.Stderr, "warning: no %s API key configured; expansion and synthesis will fall back\n", cfg.AI.Provider)
	}
	if cfg.Search.APIKey == "" {
		fmt.Fprintf(os.Stderr, "warning: no %s API key configured; searches will likely fail\n", cfg.Search.Provider)
	}

	aiBackend, err := ai.NewBackend(cfg.AI)
	if err != nil {
		return err
	}
	searchBackend, err := search.NewBackend(cfg.Search)
	if err != nil {
		return err
	}

	ctx := context.Background()
	outcome := agent.New(aiBackend, searchBackend, cfg).Run(ctx, query, os.Stderr)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if err := agent.FormatJSON(outcome, os.Stdout); err != nil {
			return err
		}
	} else {
		agent.FormatText(outcome, os.Stdout)
	}

	if outPath, _ := cmd.Flags().GetString("save"); outPath != "" {
		if err := agent.WriteOutcomeFile(outPath, query, cfg, outcome); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved outcome to %s\n", outPath)
	}

	// History failures never fail the run; the answer was already delivered.
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory {
		if err := recordHistory(ctx, cfg.History, query, outcome); err != nil {
			fmt.Fprintf(os.Stderr, "warning: history not recorded: %v\n", err)
		}
	}

	return nil
}

func recordHistory(ctx context.Context, cfg types.HistoryConfig, query string, outcome types.ResearchOutcome) error {
	store, err := history.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Save(ctx, query, outcome)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Recorded research %s\n", rec.ID)
	return nil
}

// researchConfig assembles the pipeline configuration from flags, the viper
// config, and loaded secrets. Flags win over config; explicit keys win over
// .secrets/ files.
func researchConfig(cmd *cobra.Command) types.PipelineConfig {
	aiProvider, _ := cmd.Flags().GetString("ai-provider")
	if aiProvider == "" {
		aiProvider = viper.GetString("ai.provider")
	}
	aiModel, _ := cmd.Flags().GetString("ai-model")
	if aiModel == "" {
		aiModel = viper.GetString("ai.model")
	}
	aiKey, _ := cmd.Flags().GetString("ai-key")
	if aiKey == "" {
		aiKey = viper.GetString("ai.api_key")
	}
	aiKey = secrets.Resolve(loadedSecrets, aiKeyName(aiProvider), aiKey)

	searchProvider, _ := cmd.Flags().GetString("search-provider")
	if searchProvider == "" {
		searchProvider = viper.GetString("search.provider")
	}
	searchKey, _ := cmd.Flags().GetString("search-key")
	if searchKey == "" {
		searchKey = viper.GetString("search.api_key")
	}
	searchKey = secrets.Resolve(loadedSecrets, searchKeyName(searchProvider), searchKey)

	resultsPerQuery, _ := cmd.Flags().GetInt("results-per-query")
	if resultsPerQuery <= 0 {
		resultsPerQuery = viper.GetInt("search.results_per_query")
	}
	maxSources, _ := cmd.Flags().GetInt("max-sources")
	if maxSources <= 0 {
		maxSources = viper.GetInt("search.max_sources")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return types.PipelineConfig{
		AI: types.AIConfig{
			Provider:   aiProvider,
			Model:      aiModel,
			APIKey:     aiKey,
			MaxRetries: viper.GetInt("ai.max_retries"),
		},
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   timeout,
				UserAgent: defaultUserAgent,
			},
			Provider:        searchProvider,
			APIKey:          searchKey,
			ResultsPerQuery: resultsPerQuery,
			MaxSources:      maxSources,
		},
		Synthesis: types.SynthesisConfig{
			MaxPromptResults: viper.GetInt("synthesis.max_prompt_results"),
		},
		History: types.HistoryConfig{
			DataDir: viper.GetString("history.data_dir"),
			MaxList: viper.GetInt("history.max_list"),
		},
	}
}

// aiKeyName maps an LLM provider to its .secrets/ key file name.
func aiKeyName(provider string) string {
	if provider == "openai" {
		return "openai-api-key"
	}
	return "gemini-api-key"
}

// searchKeyName maps a search provider to its .secrets/ key file name.
func searchKeyName(provider string) string {
	if provider == "bing" {
		return "bing-api-key"
	}
	return "serpapi-api-key"
}
