package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/deepresearch/core"
)

// AgentToolOptions configures an AgentTool.
type AgentToolOptions struct {
	// Name overrides the tool name (defaults to the agent name).
	Name string
	// Description overrides the tool description (defaults to the agent description).
	Description string
	// ForwardPartials re-emits streaming fragments of the nested agent on the
	// caller's event channel so progress stays visible. Defaults to true.
	ForwardPartials bool
}

// AgentTool exposes an agent as a tool taking a single "input" string. Each
// call runs the agent in an isolated child context with a fresh session and
// returns the agent's final text output.
type AgentTool struct {
	agent core.Agent
	opts  AgentToolOptions
}

// NewAgentTool wraps agent as a tool.
func NewAgentTool(agent core.Agent, optFns ...func(o *AgentToolOptions)) *AgentTool {
	opts := AgentToolOptions{
		Name:            agent.Name(),
		Description:     agent.Description(),
		ForwardPartials: true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &AgentTool{agent: agent, opts: opts}
}

// Name returns the tool name.
func (t *AgentTool) Name() string { return t.opts.Name }

// Description returns the tool description.
func (t *AgentTool) Description() string { return t.opts.Description }

// Agent returns the wrapped agent.
func (t *AgentTool) Agent() core.Agent { return t.agent }

// Parameters returns the schema of the single input argument.
func (t *AgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{"type": "string", "description": "Input for the agent"},
		},
		"required": []string{"input"},
	}
}

// Call runs the wrapped agent to completion and returns its final text.
func (t *AgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	input, _ := args["input"].(string)
	if strings.TrimSpace(input) == "" {
		return nil, NewToolError(t.Name(), "field 'input' must be a non-empty string", CodeValidation)
	}

	parent := tc.RunContext()
	emit := make(chan core.Event, 16)
	child := parent.NewChildContext(
		core.AgentInfo{Name: t.agent.Name(), Type: "agent_tool"},
		core.NewTextContent("user", input),
		emit,
	)

	errCh := make(chan error, 1)
	go func() {
		defer close(emit)
		errCh <- t.agent.Run(child)
	}()

	var final string
	for ev := range emit {
		if ev.IsPartial() {
			if t.opts.ForwardPartials && parent.Emit != nil {
				select {
				case parent.Emit <- ev:
				case <-parent.Done():
				}
			}
			continue
		}

		if ev.IsFinalResponse() && !ev.IsError() {
			if text := ev.Text(); text != "" {
				final = text
			}
		}
	}

	if err := <-errCh; err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: fmt.Sprintf("agent %s failed: %v", t.agent.Name(), err), Code: CodeExecution, Details: err}
	}

	return final, nil
}
