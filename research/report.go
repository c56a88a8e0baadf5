package research

import (
	"fmt"
	"strings"

	"github.com/hupe1980/deepresearch/search"
)

// Report section headings in the order they appear.
var ReportSections = []string{"Introduction", "Key Findings", "Analysis", "Conclusion", "Citations"}

// Report is the synthesized research document.
type Report struct {
	Query     string          `json:"query"`
	Markdown  string          `json:"markdown"`
	Sources   []search.Result `json:"sources"`
	Fallback  bool            `json:"fallback,omitempty"`
	WordCount int             `json:"word_count"`
}

// NewReport builds a report from model output. A surrounding code fence is
// removed.
func NewReport(query, markdown string, sources []search.Result) *Report {
	markdown = strings.TrimSpace(markdown)
	if m := fencePattern.FindStringSubmatch(markdown); m != nil && strings.HasPrefix(markdown, "```") {
		markdown = strings.TrimSpace(m[1])
	}

	return &Report{
		Query:     query,
		Markdown:  markdown,
		Sources:   append([]search.Result(nil), sources...),
		WordCount: len(strings.Fields(markdown)),
	}
}

// Valid reports whether the report has a body.
func (r *Report) Valid() bool {
	return r != nil && strings.TrimSpace(r.Markdown) != ""
}

// MissingSections returns the standard headings absent from the body.
func (r *Report) MissingSections() []string {
	var missing []string
	for _, s := range ReportSections {
		if !strings.Contains(r.Markdown, "## "+s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// FallbackReport returns the report used when synthesis failed. A nil cause
// means no usable search results were found.
func FallbackReport(query string, year int, cause error) *Report {
	var b strings.Builder

	fmt.Fprintf(&b, "# Fallback Report on %s\n\n", query)

	if cause == nil {
		fmt.Fprintf(&b, "## Introduction\nThis report outlines available information on %s, but no valid search results were found.\n\n", query)
		fmt.Fprintf(&b, "## Key Findings\n- Limited data available for %s in %d.\n\n", query, year)
		b.WriteString("## Analysis\nNo credible sources were retrieved, possibly due to API limitations.\n\n")
		fmt.Fprintf(&b, "## Conclusion\nFurther research is needed to provide updates on %s.\n\n", query)
	} else {
		fmt.Fprintf(&b, "## Introduction\nThis report outlines available information on %s, but an error occurred.\n\n", query)
		fmt.Fprintf(&b, "## Key Findings\n- No data retrieved for %s due to processing errors.\n\n", query)
		b.WriteString("## Analysis\nErrors in API or agent execution prevented data collection.\n\n")
		fmt.Fprintf(&b, "## Conclusion\nRetry with valid API keys or alternative sources for %s.\n\n", query)
	}

	b.WriteString("## Citations\n- None")

	r := NewReport(query, b.String(), nil)
	r.Fallback = true

	return r
}
