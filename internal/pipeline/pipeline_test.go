// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/issue-digest/internal/ai"
	"github.com/pdiddy/issue-digest/pkg/types"
)

// stageBackend answers extraction and synthesis prompts separately; synthesis
// prompts are recognized by the article corpus header.
type stageBackend struct {
	extractionJSON string
	synthesisText  string
	synthesisErr   error
	failMarkers    []string
}

func (s *stageBackend) Model() string { return "test-model" }

func (s *stageBackend) Complete(_ context.Context, prompt string) (string, ai.Usage, error) {
	usage := ai.Usage{InputTokens: 100, OutputTokens: 40}
	if strings.Contains(prompt, "\n\nArticles:\n") {
		return s.synthesisText, usage, s.synthesisErr
	}
	for _, marker := range s.failMarkers {
		if strings.Contains(prompt, marker) {
			return "", usage, fmt.Errorf("extraction failed")
		}
	}
	return s.extractionJSON, usage, nil
}

func workingBackend() *stageBackend {
	return &stageBackend{
		extractionJSON: `{"objective": "Assess.", "key_findings": ["A finding."], "study_type": "cohort", "sample_size": 30, "keywords": ["topic"]}`,
		synthesisText:  "Narrative summary [1].",
	}
}

func testRequest(n int) Request {
	docs := make([]types.Document, n)
	for i := range docs {
		docs[i] = types.Document{
			ID:    fmt.Sprintf("doc-%d", i),
			Title: fmt.Sprintf("Document %d", i),
			Text:  fmt.Sprintf("Body %d.", i),
		}
	}
	return Request{
		Documents: docs,
		Journal:   "Test Journal",
		Issue:     types.IssueInfo{Volume: "1", Number: "1", Year: 2024},
	}
}

// --- Run (sync) ---

func TestRun(t *testing.T) {
	orch := New(workingBackend(), types.PipelineConfig{Concurrency: 2})

	result, err := orch.Run(context.Background(), testRequest(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID not assigned")
	}
	if result.Summary != "Narrative summary [1]." {
		t.Errorf("Summary = %q", result.Summary)
	}
	if result.PaperCount != 3 || len(result.Extractions) != 3 {
		t.Errorf("PaperCount = %d, Extractions = %d", result.PaperCount, len(result.Extractions))
	}
	if len(result.CitationMap) != 3 {
		t.Errorf("CitationMap size = %d", len(result.CitationMap))
	}
	if result.Statistics.PaperCount != 3 || result.Statistics.TotalSampleSize != 90 {
		t.Errorf("Statistics = %+v", result.Statistics)
	}
	if result.ModelUsed != "test-model" {
		t.Errorf("ModelUsed = %q", result.ModelUsed)
	}
	// Three extraction calls plus one synthesis call, 140 tokens each.
	if result.TokensExtraction != 3*140 {
		t.Errorf("TokensExtraction = %d", result.TokensExtraction)
	}
	if result.TokensSynthesis != 140 {
		t.Errorf("TokensSynthesis = %d", result.TokensSynthesis)
	}
}

func TestRunNoDocuments(t *testing.T) {
	orch := New(workingBackend(), types.PipelineConfig{})

	_, err := orch.Run(context.Background(), Request{})
	if !errors.Is(err, ErrNoDocuments) {
		t.Errorf("err = %v, want ErrNoDocuments", err)
	}
}

func TestRunAllExtractionsFail(t *testing.T) {
	backend := workingBackend()
	backend.failMarkers = []string{"Body"}
	orch := New(backend, types.PipelineConfig{})

	_, err := orch.Run(context.Background(), testRequest(3))
	if !errors.Is(err, ErrNoExtractions) {
		t.Errorf("err = %v, want ErrNoExtractions", err)
	}
}

func TestRunPartialFailureSucceeds(t *testing.T) {
	backend := workingBackend()
	backend.failMarkers = []string{"Body 1."}
	orch := New(backend, types.PipelineConfig{})

	result, err := orch.Run(context.Background(), testRequest(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.PaperCount != 2 {
		t.Errorf("PaperCount = %d, want 2", result.PaperCount)
	}
	if len(result.FailedPapers) != 1 || result.FailedPapers[0].PaperID != "doc-1" {
		t.Errorf("FailedPapers = %+v", result.FailedPapers)
	}
	// Citation numbers stay contiguous over the survivors.
	if len(result.CitationMap) != 2 {
		t.Errorf("CitationMap = %+v", result.CitationMap)
	}
	if result.CitationMap["1"].PaperID != "doc-0" || result.CitationMap["2"].PaperID != "doc-2" {
		t.Errorf("CitationMap = %+v", result.CitationMap)
	}
}

func TestRunSynthesisFailureFatal(t *testing.T) {
	backend := workingBackend()
	backend.synthesisErr = fmt.Errorf("model unavailable")
	orch := New(backend, types.PipelineConfig{})

	_, err := orch.Run(context.Background(), testRequest(2))
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Errorf("err = %v, want surfaced synthesis cause", err)
	}
}

func TestRunCostEstimate(t *testing.T) {
	cfg := types.PipelineConfig{
		AIConfig: types.AIConfig{
			Pricing: map[string]types.ModelPricing{
				"test-model": {InputPerMTok: 3.0, OutputPerMTok: 15.0},
			},
		},
	}
	orch := New(workingBackend(), cfg)

	result, err := orch.Run(context.Background(), testRequest(1))
	if err != nil {
		t.Fatal(err)
	}

	// Two calls total: (200 in * 3 + 80 out * 15) per MTok.
	want := 200.0/1e6*3.0 + 80.0/1e6*15.0
	if diff := result.CostEstimate - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("CostEstimate = %g, want %g", result.CostEstimate, want)
	}
}

func TestRunUnpricedModelCostsZero(t *testing.T) {
	orch := New(workingBackend(), types.PipelineConfig{})

	result, err := orch.Run(context.Background(), testRequest(1))
	if err != nil {
		t.Fatal(err)
	}
	if result.CostEstimate != 0 {
		t.Errorf("CostEstimate = %g, want 0 for unpriced model", result.CostEstimate)
	}
}

// --- RunStream ---

func collectEvents(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestRunStream(t *testing.T) {
	orch := New(workingBackend(), types.PipelineConfig{Concurrency: 2})

	events := collectEvents(t, orch.RunStream(context.Background(), testRequest(3)))

	// start, 3 extraction progress, 1 synthesis progress, complete.
	want := []EventType{EventStart, EventProgress, EventProgress, EventProgress, EventProgress, EventComplete}
	got := eventTypes(events)
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	start, ok := events[0].Data.(StartData)
	if !ok || start.Total != 3 || start.RunID == "" {
		t.Errorf("StartData = %+v", events[0].Data)
	}

	// The last progress event is the synthesis placeholder at current == total.
	synth := events[4].Data.(ProgressData)
	if synth.Current != 3 || synth.Total != 3 || synth.PaperTitle != synthesisProgressTitle {
		t.Errorf("synthesis progress = %+v", synth)
	}

	complete, ok := events[5].Data.(CompleteData)
	if !ok {
		t.Fatalf("terminal data = %T", events[5].Data)
	}
	if complete.Result == nil || complete.Result.RunID != start.RunID {
		t.Errorf("CompleteData.Result = %+v", complete.Result)
	}
	if complete.Summary != "Narrative summary [1]." || complete.PaperCount != 3 {
		t.Errorf("CompleteData = %+v", complete)
	}
}

func TestRunStreamError(t *testing.T) {
	orch := New(workingBackend(), types.PipelineConfig{})

	events := collectEvents(t, orch.RunStream(context.Background(), Request{}))

	// A precondition failure still yields exactly one terminal event.
	if len(events) != 1 || events[0].Type != EventError {
		t.Fatalf("events = %v, want single error", eventTypes(events))
	}
	data := events[0].Data.(ErrorData)
	if data.Message != ErrNoDocuments.Error() {
		t.Errorf("Message = %q", data.Message)
	}
}

func TestRunStreamAllFail(t *testing.T) {
	backend := workingBackend()
	backend.failMarkers = []string{"Body"}
	orch := New(backend, types.PipelineConfig{})

	events := collectEvents(t, orch.RunStream(context.Background(), testRequest(2)))

	got := eventTypes(events)
	if got[len(got)-1] != EventError {
		t.Fatalf("events = %v, want terminal error", got)
	}
	terminals := 0
	for _, typ := range got {
		if typ == EventError || typ == EventComplete {
			terminals++
		}
	}
	if terminals != 1 {
		t.Errorf("got %d terminal events, want exactly 1 (%v)", terminals, got)
	}
}

func TestRunStreamProgressMonotonic(t *testing.T) {
	orch := New(workingBackend(), types.PipelineConfig{Concurrency: 4})

	events := collectEvents(t, orch.RunStream(context.Background(), testRequest(5)))

	last := 0
	for _, ev := range events {
		if ev.Type != EventProgress {
			continue
		}
		data := ev.Data.(ProgressData)
		if data.Current < last {
			t.Fatalf("progress went backwards: %d after %d", data.Current, last)
		}
		last = data.Current
	}
	if last != 5 {
		t.Errorf("final progress = %d, want 5", last)
	}
}
