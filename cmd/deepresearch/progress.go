package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/deepresearch/report"
	"github.com/hupe1980/deepresearch/research"
)

var stageStartLines = map[research.Stage]string{
	research.StagePlan:   "Planning...",
	research.StageSearch: "Searching...",
	research.StageReport: "Reporting...",
}

var stageTools = map[research.Stage]string{
	research.StagePlan:   research.PlanToolName,
	research.StageSearch: research.SearchToolName,
	research.StageReport: research.ReportToolName,
}

// consolePrinter renders pipeline progress for a terminal.
type consolePrinter struct {
	mu     sync.Mutex
	w      io.Writer
	stream bool

	// streaming is set while a "[X Stream]" line is open.
	streaming bool
	toolRan   map[research.Stage]bool
}

func newConsolePrinter(w io.Writer, stream bool) *consolePrinter {
	return &consolePrinter{w: w, stream: stream, toolRan: make(map[research.Stage]bool)}
}

// Handle implements research.ProgressFunc.
func (p *consolePrinter) Handle(ev research.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case research.StageStarted:
		fmt.Fprintf(p.w, "\n%s\n", stageStartLines[ev.Stage])
	case research.StageDelta:
		if !p.stream || ev.Text == "" {
			return
		}
		if !p.streaming {
			fmt.Fprintf(p.w, "[%s Stream] ", ev.Stage.Title())
			p.streaming = true
		}
		fmt.Fprint(p.w, ev.Text)
	case research.ToolExecuted:
		if ev.Tool == stageTools[ev.Stage] {
			p.toolRan[ev.Stage] = true
		}
	case research.StageFallback:
		p.endStream()
		fmt.Fprintln(p.w, fallbackLine(ev))
		if ev.Stage == research.StageSearch && ev.Placeholder {
			fmt.Fprintln(p.w, "Search Results: No valid data from direct search.")
		}
	case research.StageCompleted:
		p.endStream()
		p.printStage(ev)
		if p.toolRan[ev.Stage] {
			fmt.Fprintf(p.w, "[Tool Call Debug] %s executed\n", stageTools[ev.Stage])
		}
		fmt.Fprintln(p.w, report.Separator)
	}
}

func (p *consolePrinter) endStream() {
	if p.streaming {
		fmt.Fprintln(p.w)
		p.streaming = false
	}
}

func (p *consolePrinter) printStage(ev research.ProgressEvent) {
	res := ev.Result
	if res == nil {
		return
	}

	switch ev.Stage {
	case research.StagePlan:
		fmt.Fprintln(p.w, "\nResearch Plan:")
		fmt.Fprintln(p.w, res.Plan.String())
	case research.StageSearch:
		fmt.Fprint(p.w, "\n"+report.FormatSources(res))
	case research.StageReport:
		if res.Report != nil {
			fmt.Fprintln(p.w, "\nFinal Report:")
			fmt.Fprintln(p.w, res.Report.Markdown)
		}
	}
}

func fallbackLine(ev research.ProgressEvent) string {
	var line string

	switch ev.Stage {
	case research.StagePlan:
		line = "Planning Error: No valid plan generated"
	case research.StageSearch:
		line = "Search Results: No valid data retrieved. Falling back to direct hybrid search."
	case research.StageReport:
		line = "Report Error: No valid report generated"
	default:
		line = fmt.Sprintf("%s Error: stage failed", ev.Stage.Title())
	}

	if ev.Err != nil {
		line += fmt.Sprintf(" (%v)", ev.Err)
	}

	return line
}
