package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/hupe1980/deepresearch/research"
)

// MarkdownWriter outputs a result as a Markdown document with a metadata
// table, the plan, a sources table and the report body.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(res *research.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, res)
	w.writePlan(md, res)
	w.writeSources(md, res)
	w.writeReport(md, res)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by deepresearch*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, res *research.Result) {
	md.H1("Research: " + res.Query)
	md.PlainText("")

	fallbacks := "-"
	if len(res.Fallbacks) > 0 {
		names := make([]string, len(res.Fallbacks))
		for i, s := range res.Fallbacks {
			names[i] = string(s)
		}
		fallbacks = strings.Join(names, ", ")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + res.ID + "`"},
			{"Started", res.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", res.Duration().Round(time.Millisecond).String()},
			{"Sources", strconv.Itoa(len(res.Sources))},
			{"Fallbacks", fallbacks},
		},
	})
	md.PlainText("")

	if len(res.Fallbacks) > 0 {
		md.Warningf("Some stages used fallback output: %s.", fallbacks)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePlan(md *markdown.Markdown, res *research.Result) {
	md.H2("Research Plan")
	md.PlainText("")

	if res.Plan.Empty() {
		md.PlainText("No plan available.")
		md.PlainText("")
		return
	}

	md.OrderedList(res.Plan.Texts()...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeSources(md *markdown.Markdown, res *research.Result) {
	md.H2("Sources")
	md.PlainText("")

	if len(res.Sources) == 0 {
		md.PlainText("No sources retrieved.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(res.Sources))
	for i, s := range res.Sources {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			strings.TrimSpace(s.Icon + " " + escapeCell(s.Title)),
			escapeCell(s.Source),
			escapeCell(s.PublishedAt),
			escapeCell(s.URL),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Source", "Published", "URL"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeReport(md *markdown.Markdown, res *research.Result) {
	md.H2("Report")
	md.PlainText("")

	if res.Report == nil || !res.Report.Valid() {
		md.PlainText("No report generated.")
		md.PlainText("")
		return
	}

	md.PlainText(res.Report.Markdown)
	md.PlainText("")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
