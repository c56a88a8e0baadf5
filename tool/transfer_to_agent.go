package tool

import (
	"fmt"
	"slices"

	"github.com/hupe1980/deepresearch/core"
)

// TransferToAgentName is the name under which the handoff tool is exposed.
const TransferToAgentName = "transfer_to_agent"

// transferToAgentTool requests orchestration transfer to a named sub-agent.
type transferToAgentTool struct {
	targets []string
}

// NewTransferToAgentTool constructs the handoff tool. When targets are given
// the agent argument is restricted to them.
func NewTransferToAgentTool(targets ...string) Tool {
	return &transferToAgentTool{targets: targets}
}

func (t *transferToAgentTool) Name() string { return TransferToAgentName }

func (t *transferToAgentTool) Description() string {
	return "Hand off control to another agent by name. Use when another agent is better suited to continue."
}

func (t *transferToAgentTool) Parameters() map[string]any {
	agent := map[string]any{"type": "string", "description": "Target agent name"}
	if len(t.targets) > 0 {
		agent["enum"] = t.targets
	}

	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"agent": agent},
		"required":   []string{"agent"},
	}
}

func (t *transferToAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	agentName, _ := args["agent"].(string)
	if agentName == "" {
		return nil, NewToolError(TransferToAgentName, "field 'agent' must be a non-empty string", CodeValidation)
	}

	if len(t.targets) > 0 && !slices.Contains(t.targets, agentName) {
		return nil, NewToolError(TransferToAgentName, fmt.Sprintf("unknown agent %q", agentName), CodeValidation)
	}

	tc.TransferToAgent(agentName)

	return map[string]any{"transferred": true, "agent": agentName}, nil
}
