// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"reflect"
	"testing"

	"github.com/pdiddy/issue-digest/pkg/types"
)

func intPtr(n int) *int { return &n }

func stPtr(st types.StudyType) *types.StudyType { return &st }

func sampleExtractions() []types.Extraction {
	return []types.Extraction{
		{
			PaperID: "a", StudyType: stPtr(types.StudyRCT), SampleSize: intPtr(100),
			KeyFindings: []string{"f1", "f2"},
			Keywords:    []string{"hydrology", "runoff"},
		},
		{
			PaperID: "b", StudyType: stPtr(types.StudyRCT), SampleSize: intPtr(50),
			KeyFindings: []string{"f3"},
			Keywords:    []string{"hydrology"},
		},
		{
			// No study type, no sample size: contributes to neither count.
			PaperID:     "c",
			KeyFindings: []string{"f4"},
			Keywords:    []string{"sediment"},
		},
	}
}

func TestComputeStatistics(t *testing.T) {
	stats := ComputeStatistics(sampleExtractions(), 0)

	if stats.PaperCount != 3 {
		t.Errorf("PaperCount = %d", stats.PaperCount)
	}
	if stats.StudyTypes[types.StudyRCT] != 2 {
		t.Errorf("StudyTypes = %v", stats.StudyTypes)
	}
	if _, ok := stats.StudyTypes[types.StudyOther]; ok {
		t.Error("absent study type was counted")
	}
	if stats.TotalSampleSize != 150 {
		t.Errorf("TotalSampleSize = %d", stats.TotalSampleSize)
	}
	if stats.PapersWithSampleSize != 2 {
		t.Errorf("PapersWithSampleSize = %d", stats.PapersWithSampleSize)
	}
	if stats.KeyFindingCount != 4 {
		t.Errorf("KeyFindingCount = %d", stats.KeyFindingCount)
	}
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil, 0)
	if !reflect.DeepEqual(stats, types.Statistics{}) {
		t.Errorf("empty input = %+v, want zero value", stats)
	}
}

func TestComputeStatisticsZeroSampleSize(t *testing.T) {
	// A reported sample size of zero is a report, not an absence.
	stats := ComputeStatistics([]types.Extraction{
		{PaperID: "a", SampleSize: intPtr(0)},
	}, 0)

	if stats.PapersWithSampleSize != 1 {
		t.Errorf("PapersWithSampleSize = %d, want 1", stats.PapersWithSampleSize)
	}
	if stats.TotalSampleSize != 0 {
		t.Errorf("TotalSampleSize = %d", stats.TotalSampleSize)
	}
}

func TestComputeStatisticsReorderInvariant(t *testing.T) {
	in := sampleExtractions()
	reversed := []types.Extraction{in[2], in[1], in[0]}

	a := ComputeStatistics(in, 0)
	b := ComputeStatistics(reversed, 0)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("statistics differ under reordering:\n%+v\n%+v", a, b)
	}
}

func TestTopKeywords(t *testing.T) {
	stats := ComputeStatistics(sampleExtractions(), 2)

	want := []types.KeywordCount{
		{Keyword: "hydrology", Count: 2},
		// runoff and sediment tie at 1; alphabetical order breaks the tie.
		{Keyword: "runoff", Count: 1},
	}
	if !reflect.DeepEqual(stats.TopKeywords, want) {
		t.Errorf("TopKeywords = %v, want %v", stats.TopKeywords, want)
	}
}

func TestTopKeywordsDefaultLimit(t *testing.T) {
	exs := make([]types.Extraction, 1)
	for i := 0; i < 15; i++ {
		exs[0].Keywords = append(exs[0].Keywords, string(rune('a'+i)))
	}

	stats := ComputeStatistics(exs, 0)
	if len(stats.TopKeywords) != defaultTopKeywords {
		t.Errorf("got %d keywords, want %d", len(stats.TopKeywords), defaultTopKeywords)
	}
}
