// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StudyType classifies the study design reported by an article.
// Per prd002-extraction R1.3.
type StudyType string

const (
	StudyRCT           StudyType = "rct"
	StudyCohort        StudyType = "cohort"
	StudyCaseControl   StudyType = "case-control"
	StudyCrossSection  StudyType = "cross-sectional"
	StudyReview        StudyType = "review"
	StudyMetaAnalysis  StudyType = "meta-analysis"
	StudyModeling      StudyType = "modeling"
	StudyObservational StudyType = "observational"
	StudyOther         StudyType = "other"
)

// Extraction is the structured, model-derived summary of a single document.
// PaperID and Title are set by the pipeline, not the model, so an extraction
// never loses document identity even on partial model output (prd002 R2.1).
// All model-derived fields are optional: a nil pointer or empty slice means
// the model did not report the field, which the statistics aggregator treats
// as "not counted" rather than zero (prd003 R3.2).
type Extraction struct {
	// PaperID identifies the source document within its issue.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is the source document's title.
	Title string `json:"title" yaml:"title"`

	// Objective is the stated aim of the study.
	Objective *string `json:"objective,omitempty" yaml:"objective,omitempty"`

	// Methods summarizes the methodology in one or two sentences.
	Methods *string `json:"methods,omitempty" yaml:"methods,omitempty"`

	// KeyFindings lists the principal findings, one sentence each.
	KeyFindings []string `json:"key_findings,omitempty" yaml:"key_findings,omitempty"`

	// StudyType classifies the study design.
	StudyType *StudyType `json:"study_type,omitempty" yaml:"study_type,omitempty"`

	// SampleSize is the number of subjects/observations, when reported.
	SampleSize *int `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`

	// Limitations notes the limitations acknowledged by the authors.
	Limitations *string `json:"limitations,omitempty" yaml:"limitations,omitempty"`

	// Keywords are lowercase, hyphenated topic labels drawn from the
	// article's vocabulary.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// FailedPaper records a document whose extraction failed. Recoverable at the
// batch level: it is reported to the caller but does not abort the pipeline.
// Per prd002-extraction R4.3.
type FailedPaper struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
	Title   string `json:"title" yaml:"title"`
	Reason  string `json:"reason" yaml:"reason"`
}

// CitationRef identifies the document behind one citation number.
type CitationRef struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`
	Title   string `json:"title" yaml:"title"`
}

// CitationMap maps citation-number strings ("1", "2", ...) to document
// identity. Keys are a contiguous run starting at "1" with one entry per
// successful extraction. Per prd003-citation R1.1-R1.3.
type CitationMap map[string]CitationRef

// Statistics holds issue-level aggregates reduced from the extraction list.
// A zero Statistics is the defined neutral value for an empty input.
// Per prd003-citation R3.
type Statistics struct {
	// PaperCount is the number of extractions aggregated.
	PaperCount int `json:"paper_count" yaml:"paper_count"`

	// StudyTypes counts extractions per reported study design. Extractions
	// without a study type are not counted.
	StudyTypes map[StudyType]int `json:"study_types,omitempty" yaml:"study_types,omitempty"`

	// TotalSampleSize sums reported sample sizes across extractions.
	TotalSampleSize int `json:"total_sample_size" yaml:"total_sample_size"`

	// PapersWithSampleSize counts extractions that reported a sample size,
	// so callers can tell a true zero from "nobody reported one".
	PapersWithSampleSize int `json:"papers_with_sample_size" yaml:"papers_with_sample_size"`

	// KeyFindingCount is the total number of key findings across extractions.
	KeyFindingCount int `json:"key_finding_count" yaml:"key_finding_count"`

	// TopKeywords lists the most frequent keywords, ties broken
	// alphabetically for determinism.
	TopKeywords []KeywordCount `json:"top_keywords,omitempty" yaml:"top_keywords,omitempty"`
}

// KeywordCount pairs a keyword with its occurrence count across extractions.
type KeywordCount struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Count   int    `json:"count" yaml:"count"`
}
