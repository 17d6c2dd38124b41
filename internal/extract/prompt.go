// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/issue-digest/pkg/types"
)

// extractionPromptTmpl is the prompt sent to the model for each document. It
// instructs the model to return structured study metadata as JSON; fields the
// article does not report must be omitted, never guessed (prd002 R1.4).
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are a research analysis system. Read the following journal article and extract structured study metadata.
{{if .FieldContext}}
The article belongs to the field of {{.FieldContext}}; interpret terminology accordingly.
{{end}}
Return a JSON object with these fields:
- objective: the stated aim of the study, one sentence
- methods: the methodology, one or two sentences
- key_findings: array of the principal findings, one sentence each
- study_type: one of "rct", "cohort", "case-control", "cross-sectional", "review", "meta-analysis", "modeling", "observational", "other"
- sample_size: integer number of subjects or observations
- limitations: limitations acknowledged by the authors, one sentence
- keywords: array of lowercase, hyphenated topic labels drawn from the article's vocabulary

Omit any field the article does not report. Do not guess values. Do not include any text outside the JSON object.

Example response:
{"objective": "Assess the effect of X on Y.", "methods": "Randomized trial across 12 sites.", "key_findings": ["X reduced Y by 23%."], "study_type": "rct", "sample_size": 412, "keywords": ["x-therapy", "y-outcomes"]}

Article title: {{.Title}}

Article text:
{{.Text}}
`))

// renderPromptInput is the template payload for extractionPromptTmpl.
type renderPromptInput struct {
	Title        string
	Text         string
	FieldContext string
}

// renderExtractionPrompt executes the extraction template for one document.
func renderExtractionPrompt(doc types.Document, fieldContext string) (string, error) {
	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, renderPromptInput{
		Title:        doc.Title,
		Text:         doc.Text,
		FieldContext: fieldContext,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractionPayload mirrors the JSON shape the model is instructed to return.
// Pointers and slices keep "absent" distinct from zero values (prd002 R1.4).
type extractionPayload struct {
	Objective   *string          `json:"objective"`
	Methods     *string          `json:"methods"`
	KeyFindings []string         `json:"key_findings"`
	StudyType   *types.StudyType `json:"study_type"`
	SampleSize  *int             `json:"sample_size"`
	Limitations *string          `json:"limitations"`
	Keywords    []string         `json:"keywords"`
}

// parseExtraction decodes the model's response into an Extraction. Identity
// fields are left empty for the caller to fill. A study_type outside the
// known set is coerced to "other" rather than rejected, since partial model
// output must not lose the document (R2.1).
func parseExtraction(text string) (types.Extraction, error) {
	raw := stripFences(text)

	var payload extractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return types.Extraction{}, fmt.Errorf("parsing extraction JSON: %w", err)
	}

	if payload.StudyType != nil && !validStudyTypes[*payload.StudyType] {
		other := types.StudyOther
		payload.StudyType = &other
	}

	return types.Extraction{
		Objective:   payload.Objective,
		Methods:     payload.Methods,
		KeyFindings: payload.KeyFindings,
		StudyType:   payload.StudyType,
		SampleSize:  payload.SampleSize,
		Limitations: payload.Limitations,
		Keywords:    payload.Keywords,
	}, nil
}

// validStudyTypes is the set of accepted StudyType values (prd002 R1.3).
var validStudyTypes = map[types.StudyType]bool{
	types.StudyRCT:           true,
	types.StudyCohort:        true,
	types.StudyCaseControl:   true,
	types.StudyCrossSection:  true,
	types.StudyReview:        true,
	types.StudyMetaAnalysis:  true,
	types.StudyModeling:      true,
	types.StudyObservational: true,
	types.StudyOther:         true,
}

// stripFences removes a Markdown code fence around a JSON response. Models
// occasionally wrap JSON in ```json blocks despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
