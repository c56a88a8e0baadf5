package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/deepresearch/core"
)

// Instruction is an agent's system prompt: fixed text or text built per run,
// optionally followed by sections filled from session state.
type Instruction struct {
	text     string
	build    func(*core.RunContext) (string, error)
	sections []stateSection
}

// stateSection renders the state value under key with a title line. The
// section is omitted while the key is unset or empty.
type stateSection struct {
	title string
	key   string
}

// NewInstructionFromText creates a fixed instruction.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromFunc creates an instruction built by fn on every run,
// for example from the current date or session state.
func NewInstructionFromFunc(fn func(*core.RunContext) (string, error)) Instruction {
	return Instruction{build: fn}
}

// WithStateSection returns a copy of i that appends the session state value
// stored under key, headed by title. Stage agents use it to read the output
// of the agent before them (see ModelAgentOptions.OutputKey).
func (i Instruction) WithStateSection(title, key string) Instruction {
	sections := make([]stateSection, len(i.sections), len(i.sections)+1)
	copy(sections, i.sections)
	i.sections = append(sections, stateSection{title: title, key: key})
	return i
}

// IsStatic reports whether the instruction text is fixed.
func (i Instruction) IsStatic() bool { return i.build == nil }

// StateKeys lists the state keys the instruction reads.
func (i Instruction) StateKeys() []string {
	keys := make([]string, len(i.sections))
	for n, s := range i.sections {
		keys[n] = s.key
	}
	return keys
}

// Resolve returns the instruction text for ctx. Section values are emitted
// as template actions so they are substituted once, when the request
// processor renders the instruction over session state.
func (i Instruction) Resolve(ctx *core.RunContext) (string, error) {
	text := i.text
	if i.build != nil {
		var err error
		if text, err = i.build(ctx); err != nil {
			return "", fmt.Errorf("failed to build instruction: %w", err)
		}
	}

	if len(i.sections) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.WriteString(text)
	for _, s := range i.sections {
		fmt.Fprintf(&b, "{{with index . %q}}\n\n%s:\n{{.}}{{end}}", s.key, s.title)
	}

	return b.String(), nil
}
