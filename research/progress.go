package research

import (
	"time"
)

// Stage identifies a pipeline stage.
type Stage string

// Pipeline stages in execution order.
const (
	StagePlan   Stage = "plan"
	StageSearch Stage = "search"
	StageReport Stage = "report"
)

// Stages lists all stages in execution order.
var Stages = []Stage{StagePlan, StageSearch, StageReport}

// Title returns the display name used in stream prefixes ("Plan", "Search", "Report").
func (s Stage) Title() string {
	switch s {
	case StagePlan:
		return "Plan"
	case StageSearch:
		return "Search"
	case StageReport:
		return "Report"
	default:
		return string(s)
	}
}

// EventKind classifies progress events.
type EventKind string

// Progress event kinds.
const (
	StageStarted   EventKind = "stage_started"
	StageDelta     EventKind = "stage_delta"
	StageCompleted EventKind = "stage_completed"
	StageFallback  EventKind = "stage_fallback"
	ToolExecuted   EventKind = "tool_executed"
)

// ProgressEvent reports pipeline progress.
type ProgressEvent struct {
	Stage Stage
	Kind  EventKind
	// Agent is the author of a delta or tool event.
	Agent string
	// Tool is set for ToolExecuted events.
	Tool string
	// Text holds the streamed fragment for StageDelta events.
	Text string
	// Err carries the cause for StageFallback events. Nil means the stage
	// produced no usable output.
	Err error
	// Placeholder is set on StageFallback events when the stage output is a
	// canned placeholder. A search fallback whose direct search found
	// results leaves it unset.
	Placeholder bool
	Elapsed time.Duration
	// Result is a snapshot of the pipeline, set on StageCompleted events.
	Result *Result
}

// ProgressFunc receives progress events. It is called from the goroutine
// running the pipeline and must not block for long.
type ProgressFunc func(ev ProgressEvent)

// StageObserver receives one measurement per finished stage. Outcome is
// "ok", "fallback" or "error".
type StageObserver interface {
	ObserveStage(stage string, outcome string, duration time.Duration)
}
