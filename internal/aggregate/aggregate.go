// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate reduces an issue's extractions into issue-level metrics.
// Implements: prd003-citation (R3);
//
//	docs/ARCHITECTURE § Statistics.
package aggregate

import (
	"sort"

	"github.com/pdiddy/issue-digest/pkg/types"
)

// defaultTopKeywords is how many keywords ComputeStatistics reports when the
// caller passes 0.
const defaultTopKeywords = 10

// ComputeStatistics is a pure reduction over the extraction list. Absent
// optional fields are not counted — a missing sample size contributes neither
// to the total nor to the reporting-paper count (R3.2). The zero Statistics
// value is returned for an empty input, and the result is invariant under
// reordering of the input (R3.3, R3.4).
func ComputeStatistics(extractions []types.Extraction, topKeywords int) types.Statistics {
	if topKeywords <= 0 {
		topKeywords = defaultTopKeywords
	}

	stats := types.Statistics{PaperCount: len(extractions)}
	if len(extractions) == 0 {
		return stats
	}

	keywordCounts := make(map[string]int)
	for _, ex := range extractions {
		if ex.StudyType != nil {
			if stats.StudyTypes == nil {
				stats.StudyTypes = make(map[types.StudyType]int)
			}
			stats.StudyTypes[*ex.StudyType]++
		}
		if ex.SampleSize != nil {
			stats.TotalSampleSize += *ex.SampleSize
			stats.PapersWithSampleSize++
		}
		stats.KeyFindingCount += len(ex.KeyFindings)
		for _, kw := range ex.Keywords {
			if kw != "" {
				keywordCounts[kw]++
			}
		}
	}

	stats.TopKeywords = topN(keywordCounts, topKeywords)
	return stats
}

// topN returns the n most frequent keywords, ties broken alphabetically so
// the result is deterministic regardless of map iteration order.
func topN(counts map[string]int, n int) []types.KeywordCount {
	if len(counts) == 0 {
		return nil
	}

	all := make([]types.KeywordCount, 0, len(counts))
	for kw, c := range counts {
		all = append(all, types.KeywordCount{Keyword: kw, Count: c})
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].Count != all[b].Count {
			return all[a].Count > all[b].Count
		}
		return all[a].Keyword < all[b].Keyword
	})

	if len(all) > n {
		all = all[:n]
	}
	return all
}
