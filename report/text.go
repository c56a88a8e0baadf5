package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/deepresearch/research"
)

// Separator is the rule printed between console sections.
var Separator = strings.Repeat("-", 80)

// TextWriter prints the plan, the retrieved sources and the final report in
// the console layout used by the CLI.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *TextWriter) Write(res *research.Result) (int, error) {
	var b strings.Builder

	b.WriteString("Research Plan:\n")
	b.WriteString(res.Plan.String())
	b.WriteString("\n" + Separator + "\n")

	b.WriteString(FormatSources(res))
	b.WriteString(Separator + "\n")

	b.WriteString("Final Report:\n")
	if res.Report != nil {
		b.WriteString(res.Report.Markdown)
	}
	b.WriteString("\n" + Separator + "\n")

	return io.WriteString(w.output, b.String())
}

// FormatSources renders the "Sources Retrieved:" block.
func FormatSources(res *research.Result) string {
	var b strings.Builder

	b.WriteString("Sources Retrieved:\n")
	for i, s := range res.Sources {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, s.Title, s.Source)
		fmt.Fprintf(&b, "   URL: %s\n", s.URL)
	}

	return b.String()
}
