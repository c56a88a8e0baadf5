package research

import (
	"fmt"
	"regexp"
	"strings"
)

// Step is one research step.
type Step struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Plan is an ordered list of research steps.
type Plan struct {
	Steps    []Step `json:"steps"`
	Fallback bool   `json:"fallback,omitempty"`
}

var stepPattern = regexp.MustCompile(`^\s*(?:[-*]\s+)?(?:\*\*)?\d+[.)](?:\*\*)?\s+(.*\S)\s*$`)

// ParsePlan extracts numbered steps ("1. ..." or "1) ...") from model output.
// Lines without a number are ignored and steps are renumbered in order of
// appearance.
func ParsePlan(text string) Plan {
	var plan Plan

	for _, line := range strings.Split(text, "\n") {
		m := stepPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		stepText := strings.TrimSpace(m[1])
		if stepText == "" {
			continue
		}

		plan.Steps = append(plan.Steps, Step{Index: len(plan.Steps) + 1, Text: stepText})
	}

	return plan
}

// FallbackPlan returns the generic plan used when planning produced nothing
// usable.
func FallbackPlan(query string, year int) Plan {
	texts := []string{
		fmt.Sprintf("Search for reputable tech news sources for %s.", query),
		fmt.Sprintf("Identify key developments in %d.", year),
		"Validate with secondary sources like X posts.",
		fmt.Sprintf("Prioritize information from %d.", year),
	}

	plan := Plan{Fallback: true}
	for i, t := range texts {
		plan.Steps = append(plan.Steps, Step{Index: i + 1, Text: t})
	}

	return plan
}

// Empty reports whether the plan has no steps.
func (p Plan) Empty() bool { return len(p.Steps) == 0 }

// Texts returns the step texts in order.
func (p Plan) Texts() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Text
	}
	return out
}

// String renders the plan as "N. text" lines.
func (p Plan) String() string {
	var b strings.Builder
	for i, s := range p.Steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", s.Index, s.Text)
	}
	return b.String()
}
