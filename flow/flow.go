// Package flow provides the execution pipeline behind model driven agents.
//
// A flow runs the request -> model -> tool calls -> model loop for a single
// agent. Request processors assemble the model request (instructions,
// conversation history, tool definitions) and a FunctionExecutor runs tool
// calls. Events are emitted synchronously through the RunContext so every
// turn observes the responses of the previous one.
package flow

import (
	"errors"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/tool"
)

// ErrMaxTurnsExceeded is returned when an agent keeps requesting tool calls
// beyond its turn budget.
var ErrMaxTurnsExceeded = errors.New("max turns exceeded")

// Flow defines the interface for agent execution flows.
type Flow interface {
	// Run executes the flow until the agent produced a final answer, handed
	// off or failed.
	Run(runCtx *core.RunContext) error
}

// FlowAgent defines the interface that agents must implement to work with flows.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// ResolveInstructions returns the raw (untemplated) instruction text.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// GetTools returns the registered tools in registration order.
	GetTools() []tool.Tool

	// GetSubAgents returns the agents this agent may hand off to.
	GetSubAgents() []core.Agent

	// GetModelSettings returns per-request generation settings.
	GetModelSettings() model.Settings

	// IsStreamingEnabled returns whether streaming responses are enabled.
	IsStreamingEnabled() bool

	// IsTransferEnabled returns whether agent transfer is enabled.
	IsTransferEnabled() bool

	// GetOutputKey returns the session state key for saving the final answer.
	GetOutputKey() string

	// MaxHistoryMessages returns the maximum number of history entries sent to the model.
	MaxHistoryMessages() int

	// MaxTurns returns the maximum number of model turns per run (0 = unlimited).
	MaxTurns() int

	// TransferToAgent transfers execution to a named sub-agent.
	TransferToAgent(runCtx *core.RunContext, agentName string) error
}

// RequestProcessor processes the request before sending it to the model.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the model request before execution.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}
