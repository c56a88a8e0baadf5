package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/deepresearch/core"
)

// ToolChoice controls whether the model may, must or must not call tools.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide.
	ToolChoiceAuto ToolChoice = "auto"
	// ToolChoiceRequired forces at least one tool call.
	ToolChoiceRequired ToolChoice = "required"
	// ToolChoiceNone disables tool calls.
	ToolChoiceNone ToolChoice = "none"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Settings are per-request generation parameters. Zero values mean
// "provider default".
type Settings struct {
	MaxTokens   int64      `json:"max_tokens,omitempty"`
	Temperature *float64   `json:"temperature,omitempty"`
	ToolChoice  ToolChoice `json:"tool_choice,omitempty"`
}

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Settings     Settings         `json:"settings"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
// Implementations close both channels when generation ends.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrScriptExhausted is returned by ScriptedModel when no response is left.
var ErrScriptExhausted = errors.New("scripted model: no responses left")

// Step is one scripted model turn: either a response or an error.
type Step struct {
	Response Response
	Err      error
}

// ScriptedModel is a deterministic in-memory Model for tests. It replays a
// queue of steps, or delegates to a handler when one is set. It is safe for
// concurrent use.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	steps    []Step
	handler  func(req Request) (Response, error)
	requests []Request
}

// NewScriptedModel replays the given responses in order.
func NewScriptedModel(responses ...Response) *ScriptedModel {
	steps := make([]Step, len(responses))
	for i, r := range responses {
		steps[i] = Step{Response: r}
	}

	return &ScriptedModel{info: Info{Name: "scripted", Provider: "scripted", SupportsTools: true}, steps: steps}
}

// NewHandlerModel answers every request by calling fn.
func NewHandlerModel(fn func(req Request) (Response, error)) *ScriptedModel {
	return &ScriptedModel{info: Info{Name: "scripted", Provider: "scripted", SupportsTools: true}, handler: fn}
}

// Then appends another response step.
func (m *ScriptedModel) Then(r Response) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, Step{Response: r})
	return m
}

// Fail appends a step that returns err.
func (m *ScriptedModel) Fail(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, Step{Err: err})
	return m
}

// Requests returns a copy of every request received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *ScriptedModel) next(req Request) (Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	handler := m.handler
	if handler == nil {
		defer m.mu.Unlock()
		if len(m.steps) == 0 {
			return Response{}, ErrScriptExhausted
		}
		step := m.steps[0]
		m.steps = m.steps[1:]
		return step.Response, step.Err
	}
	m.mu.Unlock()

	return handler(req)
}

// Generate implements Model. In streaming mode text responses are replayed
// word by word as partial chunks before the final response.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		resp, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}

		if req.Stream {
			if text := resp.Content.Text(); text != "" {
				for _, w := range strings.SplitAfter(text, " ") {
					select {
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					case respCh <- Response{Partial: true, Content: core.NewTextContent("assistant", w)}:
					}
				}
			}
		}

		resp.Partial = false
		if resp.Content.Role == "" {
			resp.Content.Role = "assistant"
		}
		if resp.FinishReason == "" {
			resp.FinishReason = "stop"
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- resp:
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

// TextResponse builds a final assistant text response.
func TextResponse(text string) Response {
	return Response{Content: core.NewTextContent("assistant", text), FinishReason: "stop"}
}

// ToolCallResponse builds a final assistant response requesting tool calls.
func ToolCallResponse(calls ...core.FunctionCall) Response {
	parts := make([]core.Part, len(calls))
	for i, c := range calls {
		parts[i] = core.FunctionCallPart{FunctionCall: c}
	}
	return Response{Content: core.Content{Role: "assistant", Parts: parts}, FinishReason: "tool_calls"}
}

// ResponseText renders a function response as the string sent back to a
// model: strings verbatim, other values as JSON, errors as {"error": ...}.
func ResponseText(fr core.FunctionResponse) string {
	if fr.Error != "" && fr.Response == nil {
		b, _ := json.Marshal(map[string]string{"error": fr.Error})
		return string(b)
	}

	if s, ok := fr.Response.(string); ok {
		return s
	}

	b, err := json.Marshal(fr.Response)
	if err != nil {
		return fmt.Sprintf("%v", fr.Response)
	}

	return string(b)
}
