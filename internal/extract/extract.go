// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract produces one structured extraction per issue document and
// coordinates the per-document model calls under a bounded concurrency window.
// Implements: prd002-extraction (R1-R5);
//
//	docs/ARCHITECTURE § Extraction.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/issue-digest/internal/ai"
	"github.com/pdiddy/issue-digest/pkg/types"
)

// defaultConcurrency bounds in-flight extraction calls. Chosen to respect
// model-provider rate limits while keeping batch latency sub-linear.
const defaultConcurrency = 4

// Error records a failed extraction for one document. The coordinator, not
// the extractor, decides whether a failure is fatal to the batch (R4.1).
type Error struct {
	DocumentID string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extracting document %s: %v", e.DocumentID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProgressFunc reports one completed extraction attempt. current increases
// monotonically from 1 to total in the order completions are observed, which
// is not necessarily input order (R3.2).
type ProgressFunc func(current, total int, paperTitle string)

// Options configures a coordinator run.
type Options struct {
	// FieldContext is an optional research-field hint embedded in the
	// extraction prompt (e.g. "pediatric cardiology").
	FieldContext string

	// Concurrency bounds in-flight model calls. Zero uses the default (4).
	Concurrency int

	// Order selects how the returned extractions are ordered: input order
	// (default) or the order extractions completed (prd003 R2.2).
	Order types.CitationOrder

	// OnProgress, when non-nil, is invoked exactly once per completed
	// document, success or failure. Calls are serialized (R3.3).
	OnProgress ProgressFunc
}

// Result is the coordinator's output for one batch.
// len(Extractions) + len(Failed) == number of input documents (R4.2).
type Result struct {
	Extractions []types.Extraction
	Failed      []types.FailedPaper
	Usage       ai.Usage
}

// ExtractDocument runs the structured-extraction model call for a single
// document. The returned extraction always carries the document's ID and
// title regardless of what the model produced (R2.1). The usage value is
// meaningful even when err is non-nil, so callers can account for tokens
// billed on calls that subsequently failed parsing.
func ExtractDocument(ctx context.Context, backend ai.Backend, doc types.Document, fieldContext string) (types.Extraction, ai.Usage, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return types.Extraction{}, ai.Usage{}, &Error{DocumentID: doc.ID, Err: fmt.Errorf("document has no extractable text")}
	}

	prompt, err := renderExtractionPrompt(doc, fieldContext)
	if err != nil {
		return types.Extraction{}, ai.Usage{}, &Error{DocumentID: doc.ID, Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	text, usage, err := backend.Complete(ctx, prompt)
	if err != nil {
		return types.Extraction{}, usage, &Error{DocumentID: doc.ID, Err: err}
	}

	ex, err := parseExtraction(text)
	if err != nil {
		return types.Extraction{}, usage, &Error{DocumentID: doc.ID, Err: err}
	}

	// Identity comes from the pipeline, never from the model.
	ex.PaperID = doc.ID
	ex.Title = doc.Title
	return ex, usage, nil
}

// Run fans the document batch out to ExtractDocument under the configured
// concurrency window and collects results. A failing document is recorded in
// Failed and the batch proceeds; Run itself never fails — when every document
// fails it returns normally with an empty extraction list, and the caller
// decides whether that is fatal (R4.1, R4.4).
func Run(ctx context.Context, backend ai.Backend, docs []types.Document, opts Options) Result {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	type slot struct {
		ex        types.Extraction
		completed int // 1-based completion sequence, for completion ordering
		ok        bool
	}

	var (
		mu        sync.Mutex
		completed int
		slots     = make([]slot, len(docs))
		failed    []types.FailedPaper
		usage     ai.Usage
	)

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	total := len(docs)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			ex, u, err := ExtractDocument(ctx, backend, doc, opts.FieldContext)

			// One locked region per completion: the progress sink is the only
			// shared mutable resource and its writes must be serialized (R3.3).
			mu.Lock()
			defer mu.Unlock()

			usage = usage.Add(u)
			completed++
			if err != nil {
				failed = append(failed, types.FailedPaper{
					PaperID: doc.ID,
					Title:   doc.Title,
					Reason:  reason(err),
				})
			} else {
				slots[i] = slot{ex: ex, completed: completed, ok: true}
			}
			if opts.OnProgress != nil {
				opts.OnProgress(completed, total, doc.Title)
			}
			return nil
		})
	}
	g.Wait()

	// Compact successful slots. Input order falls out of the slot index;
	// completion order re-sorts by completion sequence.
	var ordered []slot
	for _, s := range slots {
		if s.ok {
			ordered = append(ordered, s)
		}
	}
	if opts.Order == types.OrderCompletion {
		sort.Slice(ordered, func(a, b int) bool {
			return ordered[a].completed < ordered[b].completed
		})
	}

	extractions := make([]types.Extraction, 0, len(ordered))
	for _, s := range ordered {
		extractions = append(extractions, s.ex)
	}

	return Result{Extractions: extractions, Failed: failed, Usage: usage}
}

// reason flattens an extraction error to the human-readable cause recorded in
// FailedPaper, dropping the "extracting document <id>" prefix since the
// record already carries the ID.
func reason(err error) string {
	var exErr *Error
	if errors.As(err, &exErr) {
		return exErr.Err.Error()
	}
	return err.Error()
}
