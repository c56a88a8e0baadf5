package testutil

import "github.com/hupe1980/deepresearch/core"

// EventBuilder provides a fluent helper for constructing events in tests.
//
//	ev := NewEventBuilder().Author("PlanningAgent").Invocation("run-1").AssistantText("1. Search").Build()
type EventBuilder struct {
	author        string
	invocationID  string
	id            string
	role          string
	textParts     []string
	funcCalls     []core.FunctionCall
	funcResponses []core.FunctionResponse
	partial       *bool
	actions       core.EventActions
	branch        *string
}

// NewEventBuilder creates a builder with default author "agent".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "agent"} }

// Author sets the author name for the event.
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Invocation sets the run ID associated with the event.
func (b *EventBuilder) Invocation(id string) *EventBuilder { b.invocationID = id; return b }

// ID overrides the auto-generated event ID.
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Branch sets the branch label.
func (b *EventBuilder) Branch(br string) *EventBuilder { b.branch = &br; return b }

// Partial marks the event as a streaming chunk.
func (b *EventBuilder) Partial(p bool) *EventBuilder { b.partial = &p; return b }

// UserText appends a user text part.
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.role = "user"
	b.textParts = append(b.textParts, t)
	return b
}

// AssistantText appends an assistant text part.
func (b *EventBuilder) AssistantText(t string) *EventBuilder {
	b.role = "assistant"
	b.textParts = append(b.textParts, t)
	return b
}

// FunctionCall adds a function call part.
func (b *EventBuilder) FunctionCall(id, name, args string) *EventBuilder {
	b.funcCalls = append(b.funcCalls, core.FunctionCall{ID: id, Name: name, Arguments: args})
	return b
}

// FunctionResponse adds a function response part.
func (b *EventBuilder) FunctionResponse(id, name string, result any, err error) *EventBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	b.role = "tool"
	b.funcResponses = append(b.funcResponses, fr)
	return b
}

// StateDelta records a state change on the event actions.
func (b *EventBuilder) StateDelta(k string, v any) *EventBuilder {
	if b.actions.StateDelta == nil {
		b.actions.StateDelta = map[string]any{}
	}
	b.actions.StateDelta[k] = v
	return b
}

// Transfer sets the target agent for a transfer action.
func (b *EventBuilder) Transfer(to string) *EventBuilder { b.actions.TransferToAgent = &to; return b }

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.invocationID, b.author)
	if b.id != "" {
		ev.ID = b.id
	}
	ev.Branch = b.branch
	ev.Partial = b.partial
	ev.Actions = b.actions

	parts := make([]core.Part, 0, len(b.textParts)+len(b.funcCalls)+len(b.funcResponses))
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, fc := range b.funcCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	for _, fr := range b.funcResponses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}

	if len(parts) > 0 {
		role := b.role
		if role == "" || len(b.funcCalls) > 0 {
			role = "assistant"
		}
		ev.Content = &core.Content{Role: role, Parts: parts}
	}

	return ev
}
