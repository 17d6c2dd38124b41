// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences extraction, citation indexing, aggregation, and
// synthesis into one issue summary run, with synchronous and streaming entry
// points sharing the same state machine.
// Implements: prd005-pipeline (R1-R5), prd006-service (R3);
//
//	docs/ARCHITECTURE § Summary Pipeline.
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pdiddy/issue-digest/internal/aggregate"
	"github.com/pdiddy/issue-digest/internal/ai"
	"github.com/pdiddy/issue-digest/internal/citation"
	"github.com/pdiddy/issue-digest/internal/extract"
	"github.com/pdiddy/issue-digest/internal/synthesize"
	"github.com/pdiddy/issue-digest/pkg/types"
)

// Precondition and batch-level failures surfaced by a run. Both are fatal:
// the first means the pipeline never started, the second that extraction
// left nothing to synthesize (prd005 R2.1, R2.3).
var (
	ErrNoDocuments   = errors.New("no documents")
	ErrNoExtractions = errors.New("no successful extractions")
)

// Request carries one pipeline invocation's inputs. Documents must be
// pre-filtered to those with extractable text (prd001 R4.2).
type Request struct {
	Documents    []types.Document
	Journal      string
	Issue        types.IssueInfo
	CustomPrompt string
	FieldContext string
}

// Orchestrator runs the summary pipeline. Safe for concurrent use: each run
// carries its own state, and the backend is shared and stateless.
type Orchestrator struct {
	backend ai.Backend
	cfg     types.PipelineConfig
}

// New builds an orchestrator from a backend and pipeline settings.
func New(backend ai.Backend, cfg types.PipelineConfig) *Orchestrator {
	return &Orchestrator{backend: backend, cfg: cfg}
}

// Run is the synchronous entry point: it returns the assembled result only
// on reaching the Done state, or the underlying cause on any fatal failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*types.PipelineResult, error) {
	return o.run(ctx, req, func(Event) {})
}

// RunStream is the streaming entry point. It starts the run in a goroutine
// and returns a channel of ordered events, closed after exactly one terminal
// event. Event delivery stops silently when ctx is cancelled — a departed
// consumer never blocks or aborts the in-flight model calls (prd006 R4.1).
func (o *Orchestrator) RunStream(ctx context.Context, req Request) <-chan Event {
	ch := make(chan Event, len(req.Documents)+4)

	emit := func(ev Event) {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)
		result, err := o.run(ctx, req, emit)
		if err != nil {
			emit(Event{Type: EventError, Data: ErrorData{Message: err.Error()}})
			return
		}
		emit(Event{Type: EventComplete, Data: CompleteData{
			Result:       result,
			Summary:      result.Summary,
			PaperCount:   result.PaperCount,
			FailedPapers: result.FailedPapers,
			CostEstimate: result.CostEstimate,
			Statistics:   result.Statistics,
			CitationMap:  result.CitationMap,
		}})
	}()

	return ch
}

// run drives the Idle → Extracting → Indexing → Synthesizing → Done state
// machine. emit receives non-terminal events; terminal events are the
// caller's responsibility so the two entry points share one code path.
func (o *Orchestrator) run(ctx context.Context, req Request, emit func(Event)) (*types.PipelineResult, error) {
	// Idle → Extracting requires at least one document (prd005 R2.1).
	if len(req.Documents) == 0 {
		return nil, ErrNoDocuments
	}

	runID := uuid.New().String()
	total := len(req.Documents)
	emit(Event{Type: EventStart, Data: StartData{RunID: runID, Total: total}})

	res := extract.Run(ctx, o.backend, req.Documents, extract.Options{
		FieldContext: req.FieldContext,
		Concurrency:  o.cfg.Concurrency,
		Order:        o.cfg.CitationOrder,
		OnProgress: func(current, total int, paperTitle string) {
			emit(Event{Type: EventProgress, Data: ProgressData{
				Current:    current,
				Total:      total,
				PaperTitle: paperTitle,
			}})
		},
	})

	// Extracting → Indexing is unconditional except when everything failed:
	// synthesis would have nothing to work with (prd005 R2.3).
	if len(res.Extractions) == 0 {
		return nil, ErrNoExtractions
	}

	citationMap := citation.BuildCitationMap(res.Extractions)
	stats := aggregate.ComputeStatistics(res.Extractions, o.cfg.TopKeywords)

	// Indexing → Synthesizing; announce the synthesis phase on the progress
	// stream with the placeholder title (prd006 R3.2).
	emit(Event{Type: EventProgress, Data: ProgressData{
		Current:    total,
		Total:      total,
		PaperTitle: synthesisProgressTitle,
	}})

	out, err := synthesize.Synthesize(ctx, o.backend, synthesize.Input{
		Extractions:  res.Extractions,
		Journal:      req.Journal,
		Issue:        req.Issue,
		CustomPrompt: req.CustomPrompt,
		FieldContext: req.FieldContext,
	})
	if err != nil {
		// Synthesis failure is fatal; surface the cause unmodified.
		return nil, err
	}

	cost := estimateCost(o.cfg.Pricing, o.backend.Model(), res.Usage) +
		estimateCost(o.cfg.Pricing, out.ModelUsed, out.Usage)

	return &types.PipelineResult{
		RunID:            runID,
		Summary:          out.Summary,
		Extractions:      res.Extractions,
		CitationMap:      citationMap,
		Statistics:       stats,
		PaperCount:       len(res.Extractions),
		FailedPapers:     res.Failed,
		ModelUsed:        out.ModelUsed,
		TokensExtraction: res.Usage.Total(),
		TokensSynthesis:  out.Usage.Total(),
		CostEstimate:     cost,
	}, nil
}
