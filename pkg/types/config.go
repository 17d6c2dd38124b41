package types

import "time"

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// CallTimeout bounds a single model call so a hung request becomes a
	// recorded failure instead of a stalled concurrency slot (default 90s).
	// Per prd002-extraction R5.4.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`

	// MaxRetries is the number of retry attempts for transient API failures
	// within a single extraction or synthesis call (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Pricing maps model identifiers to per-MTok rates for cost estimation.
	Pricing map[string]ModelPricing `json:"pricing,omitempty" yaml:"pricing,omitempty"`
}

// ModelPricing holds USD rates per million tokens for one model.
type ModelPricing struct {
	InputPerMTok  float64 `json:"input_per_mtok" yaml:"input_per_mtok"`
	OutputPerMTok float64 `json:"output_per_mtok" yaml:"output_per_mtok"`
}

// CitationOrder selects how citation numbers are assigned to successful
// extractions. Per prd003-citation R2.
type CitationOrder string

const (
	// OrderInput numbers extractions by original document order (default).
	OrderInput CitationOrder = "input"

	// OrderCompletion numbers extractions in the order their model calls
	// completed. Kept for compatibility with summaries stored by earlier
	// versions whose citation maps were built this way.
	OrderCompletion CitationOrder = "completion"
)

// PipelineConfig holds settings for the summary pipeline.
// Per prd005-pipeline R1.
type PipelineConfig struct {
	AIConfig `yaml:",inline"`

	// Concurrency bounds in-flight extraction calls (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// CitationOrder selects citation numbering: input or completion.
	CitationOrder CitationOrder `json:"citation_order" yaml:"citation_order"`

	// TopKeywords is how many keywords the statistics aggregator reports
	// (default 10).
	TopKeywords int `json:"top_keywords" yaml:"top_keywords"`
}

// StoreConfig holds settings for the issue cache and summary store.
type StoreConfig struct {
	// DataDir is the base directory for the SQLite database (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// ServerConfig holds settings for the HTTP surface.
// Per prd006-service R1.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`
}

// Config groups all component configurations.
type Config struct {
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}
