// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation assigns citation numbers to successful extractions and
// builds the bidirectional index used by synthesis.
// Implements: prd003-citation (R1, R2);
//
//	docs/ARCHITECTURE § Citation Index.
package citation

import (
	"sort"
	"strconv"

	"github.com/pdiddy/issue-digest/pkg/types"
)

// BuildCitationMap numbers the i-th extraction (1-based) and maps the number
// to document identity. Pure and total: it holds no counter state across
// calls and an empty input yields an empty map (R1.2, R1.4). Documents that
// failed extraction never reach this function, so they consume no citation
// number (R1.3).
func BuildCitationMap(extractions []types.Extraction) types.CitationMap {
	m := make(types.CitationMap, len(extractions))
	for i, ex := range extractions {
		m[strconv.Itoa(i+1)] = types.CitationRef{
			PaperID: ex.PaperID,
			Title:   ex.Title,
		}
	}
	return m
}

// Numbers returns the map's citation numbers sorted numerically. Useful for
// deterministic iteration when rendering prompts or export files.
func Numbers(m types.CitationMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		na, _ := strconv.Atoi(keys[a])
		nb, _ := strconv.Atoi(keys[b])
		return na < nb
	})
	return keys
}
