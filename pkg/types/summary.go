// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PipelineResult is the unit a completed pipeline run hands to persistence
// and to the caller. Immutable once returned: the pipeline never touches a
// result after yielding it. Per prd005-pipeline R5.1-R5.4.
type PipelineResult struct {
	// RunID identifies this pipeline invocation in logs and event streams.
	RunID string `json:"run_id" yaml:"run_id"`

	// Summary is the synthesized narrative citing documents by citation number.
	Summary string `json:"summary" yaml:"summary"`

	// Extractions holds one entry per successfully processed document, in
	// citation order.
	Extractions []Extraction `json:"extractions" yaml:"extractions"`

	// CitationMap maps citation numbers to document identity.
	CitationMap CitationMap `json:"citation_map" yaml:"citation_map"`

	// Statistics holds issue-level aggregates over Extractions.
	Statistics Statistics `json:"statistics" yaml:"statistics"`

	// PaperCount is len(Extractions).
	PaperCount int `json:"paper_count" yaml:"paper_count"`

	// FailedPapers records documents whose extraction failed.
	FailedPapers []FailedPaper `json:"failed_papers,omitempty" yaml:"failed_papers,omitempty"`

	// ModelUsed is the model identifier that produced the synthesis.
	ModelUsed string `json:"model_used" yaml:"model_used"`

	// TokensExtraction and TokensSynthesis are total billed tokens
	// (input + output) per stage.
	TokensExtraction int `json:"tokens_extraction" yaml:"tokens_extraction"`
	TokensSynthesis  int `json:"tokens_synthesis" yaml:"tokens_synthesis"`

	// CostEstimate is the estimated USD cost of both stages.
	CostEstimate float64 `json:"cost_estimate" yaml:"cost_estimate"`
}

// StoredSummary is a persisted PipelineResult with its storage key.
// UserID is nil for the shared (viewer-less) summary of an issue.
// Per prd007-persistence R1.2.
type StoredSummary struct {
	ScraperKey string    `json:"scraper_key" yaml:"scraper_key"`
	IssueID    string    `json:"issue_id" yaml:"issue_id"`
	UserID     *string   `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`

	PipelineResult `yaml:",inline"`
}
