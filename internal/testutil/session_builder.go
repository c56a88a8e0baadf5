package testutil

import (
	"github.com/hupe1980/deepresearch/core"
)

// SessionBuilder assembles the session a pipeline stage would see: the
// user's query followed by what earlier stages stored under their output
// keys.
//
//	sess := NewSessionBuilder("s1").
//		Query("run-1", "AI chips").
//		StageOutput("PlanningAgent", "research_plan", "1. Search chip news").
//		Build()
type SessionBuilder struct {
	id     string
	runID  string
	state  map[string]any
	events []core.Event
}

// NewSessionBuilder creates a builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, runID: "test-run", state: map[string]any{}}
}

// Query appends the user's research query as a user event of run runID.
// Later events are bound to the same run.
func (b *SessionBuilder) Query(runID, text string) *SessionBuilder {
	b.runID = runID
	b.events = append(b.events, NewEventBuilder().Author("user").Invocation(runID).UserText(text).Build())
	return b
}

// StageOutput records the final answer of a stage agent the way an agent
// with an output key does: an assistant event carrying the state delta, and
// the value in session state.
func (b *SessionBuilder) StageOutput(agent, key, text string) *SessionBuilder {
	b.events = append(b.events, NewEventBuilder().
		Author(agent).
		Invocation(b.runID).
		AssistantText(text).
		StateDelta(key, text).
		Build())
	b.state[key] = text
	return b
}

// State sets a state value without a matching event.
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Build returns the session.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id)
	s.ApplyStateDelta(b.state)
	for _, ev := range b.events {
		s.AddEvent(ev)
	}
	return s
}
