// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai provides the Generative AI backend shared by the extraction and
// synthesis stages. Implements: prd002-extraction (R5), prd004-synthesis (R2);
//
//	docs/ARCHITECTURE § Model Backend.
package ai

import "context"

// Usage holds the billed token counts for one model call. Stages accumulate
// these so the pipeline can report per-stage totals and a cost estimate even
// when only some calls succeed (prd005 R4.2).
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add returns the sum of two usage records.
func (u Usage) Add(v Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + v.InputTokens,
		OutputTokens: u.OutputTokens + v.OutputTokens,
	}
}

// Backend abstracts the Generative AI API so tests can supply a mock.
// Complete sends one prompt and returns the response text with its billed
// usage. Implementations try the call once plus any internal transient-error
// retries; callers never retry (prd005 R3.1).
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, Usage, error)

	// Model returns the model identifier calls are billed against.
	Model() string
}
