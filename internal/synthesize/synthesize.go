// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize merges an issue's extractions into one narrative digest
// that cites documents by citation number.
// Implements: prd004-synthesis (R1-R3);
//
//	docs/ARCHITECTURE § Synthesis.
package synthesize

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/issue-digest/internal/ai"
	"github.com/pdiddy/issue-digest/pkg/types"
)

// Error records a failed synthesis. Unlike per-document extraction failures
// this is fatal to the pipeline: there is no partial-narrative fallback (R3.1).
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("synthesizing issue summary: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Input carries everything the synthesis prompt embeds.
type Input struct {
	// Extractions are the successful extractions in citation order; the
	// i-th entry is cited as [i+1].
	Extractions []types.Extraction

	// Journal and Issue describe the issue being summarized.
	Journal string
	Issue   types.IssueInfo

	// CustomPrompt, when non-empty, replaces the default synthesis
	// instruction (R2.3). The article corpus is appended either way.
	CustomPrompt string

	// FieldContext is an optional research-field hint.
	FieldContext string
}

// Output is the synthesis result.
type Output struct {
	Summary   string
	Usage     ai.Usage
	ModelUsed string
}

// Synthesize makes the single model call that merges all extractions into a
// narrative. Fails with *Error if the model call fails or returns empty
// content (R3.1).
func Synthesize(ctx context.Context, backend ai.Backend, in Input) (Output, error) {
	prompt := BuildPrompt(in)

	text, usage, err := backend.Complete(ctx, prompt)
	if err != nil {
		return Output{Usage: usage}, &Error{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Output{Usage: usage}, &Error{Err: fmt.Errorf("model returned empty summary")}
	}

	return Output{
		Summary:   strings.TrimSpace(text),
		Usage:     usage,
		ModelUsed: backend.Model(),
	}, nil
}

// BuildPrompt renders the full synthesis prompt: the instruction (default or
// caller-supplied) followed by every extraction tagged with its citation
// number. Exported so the transport layer can preview exactly what a run
// would send (R2.4).
func BuildPrompt(in Input) string {
	instruction := in.CustomPrompt
	if instruction == "" {
		instruction = DefaultSynthesisPrompt(in.Journal, in.Issue, len(in.Extractions), in.FieldContext)
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nArticles:\n")
	for i, ex := range in.Extractions {
		writeExtraction(&b, i+1, ex)
	}
	return b.String()
}

// DefaultSynthesisPrompt renders the default instruction without making any
// model call — used to preview the prompt before committing to generation (R2.4).
func DefaultSynthesisPrompt(journal string, issue types.IssueInfo, articleCount int, fieldContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are writing a research digest for %s, %s.\n\n", journal, issue.String())
	fmt.Fprintf(&b, "Below are structured summaries of the %d articles in this issue, each tagged with a citation number.\n", articleCount)
	if fieldContext != "" {
		fmt.Fprintf(&b, "The issue belongs to the field of %s; interpret terminology accordingly.\n", fieldContext)
	}
	b.WriteString(`
Write a narrative summary of the issue's research trends:
- Open with the issue's overall themes.
- Group related findings and contrast disagreements between studies.
- Cite every claim with the citation number of its source article, e.g. [3].
- Note methodological patterns (study designs, sample sizes) where relevant.
- Close with open questions the issue leaves unresolved.

Write in plain prose, no headings or bullet lists. Cite only the numbers given; never invent citations.`)
	return b.String()
}

// writeExtraction renders one extraction's block in the prompt corpus.
// Absent fields are simply omitted.
func writeExtraction(b *strings.Builder, number int, ex types.Extraction) {
	fmt.Fprintf(b, "\n[%d] %s\n", number, ex.Title)
	if ex.StudyType != nil {
		fmt.Fprintf(b, "Study type: %s\n", *ex.StudyType)
	}
	if ex.SampleSize != nil {
		fmt.Fprintf(b, "Sample size: %d\n", *ex.SampleSize)
	}
	if ex.Objective != nil {
		fmt.Fprintf(b, "Objective: %s\n", *ex.Objective)
	}
	if ex.Methods != nil {
		fmt.Fprintf(b, "Methods: %s\n", *ex.Methods)
	}
	for _, f := range ex.KeyFindings {
		fmt.Fprintf(b, "- %s\n", f)
	}
	if ex.Limitations != nil {
		fmt.Fprintf(b, "Limitations: %s\n", *ex.Limitations)
	}
	if len(ex.Keywords) > 0 {
		fmt.Fprintf(b, "Keywords: %s\n", strings.Join(ex.Keywords, ", "))
	}
}
