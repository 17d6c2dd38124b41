// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "github.com/pdiddy/issue-digest/pkg/types"

// EventType names the events a streaming run emits, in protocol order:
// one start, one progress per completed extraction plus one before synthesis,
// then exactly one terminal complete or error. Per prd006-service R3.1-R3.4.
type EventType string

const (
	EventStart    EventType = "start"
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one message on a streaming run's channel. Data holds the payload
// struct matching Type; the transport layer owns serialization (prd006 R3.5).
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// StartData announces the batch size after documents are resolved, before
// extraction begins.
type StartData struct {
	RunID string `json:"run_id"`
	Total int    `json:"total"`
}

// ProgressData reports one completed extraction attempt. Current counts
// completions, not input positions. The final progress event before the
// synthesis call carries Current == Total and the synthesis placeholder title.
type ProgressData struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	PaperTitle string `json:"paperTitle"`
}

// synthesisProgressTitle is the placeholder title on the progress event
// emitted immediately before the synthesis call (prd006 R3.2).
const synthesisProgressTitle = "Synthesizing trends..."

// CompleteData is the terminal success payload. Result carries the full
// pipeline output for the transport layer to persist; it stays off the wire,
// which only sees the response fields below.
type CompleteData struct {
	Result *types.PipelineResult `json:"-"`

	Summary      string              `json:"summary"`
	PaperCount   int                 `json:"paperCount"`
	FailedPapers []types.FailedPaper `json:"failedPapers"`
	CostEstimate float64             `json:"costEstimate"`
	Statistics   types.Statistics    `json:"statistics"`
	CitationMap  types.CitationMap   `json:"citationMap"`
}

// ErrorData is the terminal failure payload, mutually exclusive with complete.
type ErrorData struct {
	Message string `json:"message"`
}
