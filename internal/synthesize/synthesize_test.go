// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synthesize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/issue-digest/internal/ai"
	"github.com/pdiddy/issue-digest/pkg/types"
)

type scriptedBackend struct {
	response   string
	err        error
	seenPrompt string
}

func (s *scriptedBackend) Model() string { return "test-model" }

func (s *scriptedBackend) Complete(_ context.Context, prompt string) (string, ai.Usage, error) {
	s.seenPrompt = prompt
	return s.response, ai.Usage{InputTokens: 20, OutputTokens: 10}, s.err
}

func sampleInput() Input {
	st := types.StudyCohort
	n := 250
	obj := "Measure seasonal recharge."
	return Input{
		Extractions: []types.Extraction{
			{
				PaperID: "a1", Title: "Groundwater Recharge",
				StudyType: &st, SampleSize: &n, Objective: &obj,
				KeyFindings: []string{"Recharge peaks in spring."},
				Keywords:    []string{"recharge"},
			},
			{
				PaperID: "a2", Title: "Flood Modeling",
				KeyFindings: []string{"Model B outperforms model A."},
			},
		},
		Journal: "Journal of Applied Hydrology",
		Issue:   types.IssueInfo{Volume: "12", Number: "3", Year: 2024},
	}
}

func TestSynthesize(t *testing.T) {
	backend := &scriptedBackend{response: "  A narrative [1][2].  "}

	out, err := Synthesize(context.Background(), backend, sampleInput())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.Summary != "A narrative [1][2]." {
		t.Errorf("Summary = %q, want trimmed narrative", out.Summary)
	}
	if out.ModelUsed != "test-model" {
		t.Errorf("ModelUsed = %q", out.ModelUsed)
	}
	if out.Usage.Total() != 30 {
		t.Errorf("Usage = %+v", out.Usage)
	}
}

func TestSynthesizeBackendError(t *testing.T) {
	backend := &scriptedBackend{err: fmt.Errorf("overloaded")}

	_, err := Synthesize(context.Background(), backend, sampleInput())
	var synthErr *Error
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("cause lost: %v", err)
	}
}

func TestSynthesizeEmptyContent(t *testing.T) {
	backend := &scriptedBackend{response: "   \n  "}

	_, err := Synthesize(context.Background(), backend, sampleInput())
	var synthErr *Error
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want *Error for empty content", err)
	}
}

func TestBuildPromptDefault(t *testing.T) {
	prompt := BuildPrompt(sampleInput())

	for _, want := range []string{
		"Journal of Applied Hydrology",
		"Vol. 12, No. 3 (2024)",
		"2 articles",
		"[1] Groundwater Recharge",
		"[2] Flood Modeling",
		"Study type: cohort",
		"Sample size: 250",
		"- Recharge peaks in spring.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// The second extraction reported no study type; its block must not
	// render an empty field.
	second := prompt[strings.Index(prompt, "[2]"):]
	if strings.Contains(second, "Study type:") {
		t.Error("absent study type rendered in prompt")
	}
}

func TestBuildPromptCustomInstruction(t *testing.T) {
	in := sampleInput()
	in.CustomPrompt = "Summarize only the methodological disputes."

	prompt := BuildPrompt(in)
	if !strings.HasPrefix(prompt, "Summarize only the methodological disputes.") {
		t.Error("custom instruction did not replace the default")
	}
	if strings.Contains(prompt, "research digest") {
		t.Error("default instruction leaked into custom prompt")
	}
	// The article corpus is appended regardless of instruction.
	if !strings.Contains(prompt, "[1] Groundwater Recharge") {
		t.Error("article corpus missing from custom prompt")
	}
}

func TestBuildPromptCustomInstructionObservable(t *testing.T) {
	in := sampleInput()
	in.CustomPrompt = "CUSTOM-INSTRUCTION-MARKER"

	backend := &scriptedBackend{response: "ok"}
	if _, err := Synthesize(context.Background(), backend, in); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(backend.seenPrompt, "CUSTOM-INSTRUCTION-MARKER") {
		t.Error("custom prompt not sent to the model")
	}
}

func TestDefaultSynthesisPromptFieldContext(t *testing.T) {
	prompt := DefaultSynthesisPrompt("J", types.IssueInfo{}, 3, "glaciology")
	if !strings.Contains(prompt, "glaciology") {
		t.Error("field context missing")
	}

	without := DefaultSynthesisPrompt("J", types.IssueInfo{}, 3, "")
	if strings.Contains(without, "field of") {
		t.Error("field context sentence rendered without a context")
	}
}
