// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/issue-digest/internal/ai"
	"github.com/pdiddy/issue-digest/pkg/types"
)

// estimateCost prices a usage record against the configured per-MTok rates
// for the model. An unpriced model estimates to zero rather than erroring:
// cost accounting is advisory and must never fail a run (prd005 R4.3).
func estimateCost(pricing map[string]types.ModelPricing, model string, u ai.Usage) float64 {
	rates, ok := pricing[model]
	if !ok {
		return 0
	}
	in := float64(u.InputTokens) / 1e6 * rates.InputPerMTok
	out := float64(u.OutputTokens) / 1e6 * rates.OutputPerMTok
	return in + out
}
