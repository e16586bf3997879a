package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-agent/0.1"). Per prd011-web-search R4.3.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
// Per prd010-expansion R2.1-R2.3, prd012-synthesis R2.1.
type AIConfig struct {
	// Provider selects the language-model backend: gemini or openai.
	Provider string `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "gemini-2.5-flash").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited API calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SearchConfig holds settings for the web search stage.
// Per prd011-web-search R1.2, R4.1-R4.4.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the search backend: serpapi or bing.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the authentication key for the search API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// ResultsPerQuery is the number of results requested for each expanded
	// query (default 8).
	ResultsPerQuery int `json:"results_per_query" yaml:"results_per_query"`

	// MaxSources is the cap applied to the merged result set before
	// synthesis (default 15).
	MaxSources int `json:"max_sources" yaml:"max_sources"`
}

// SynthesisConfig holds settings for the answer synthesis stage.
// Per prd012-synthesis R1.2.
type SynthesisConfig struct {
	// MaxPromptResults is the number of merged results enumerated in the
	// synthesis prompt (default 10).
	MaxPromptResults int `json:"max_prompt_results" yaml:"max_prompt_results"`
}

// HistoryConfig holds settings for the research history store.
// Per prd014-research-history R1.1, R3.1.
type HistoryConfig struct {
	// DataDir is the directory holding the history database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxList is the default maximum number of records returned by history
	// listings and searches (default 50).
	MaxList int `json:"max_list" yaml:"max_list"`
}

// PipelineConfig groups all stage configurations for the research pipeline.
// One AI configuration serves both the expansion and synthesis stages; they
// call the same model.
type PipelineConfig struct {
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Search    SearchConfig    `json:"search" yaml:"search"`
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`
	History   HistoryConfig   `json:"history" yaml:"history"`
}
