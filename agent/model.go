package agent

import (
	"fmt"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/flow"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description        string
	Instruction        Instruction
	Tools              []tool.Tool
	Settings           model.Settings
	EnableStreaming    bool
	OutputKey          string
	MaxHistoryMessages int
	MaxTurns           int
	AllowTransfer      bool
	MaxParallelTools   int
	ToolObserver       flow.ToolObserver
}

// ModelAgent drives a language model through the request -> model -> tool
// calls loop. It supports:
//   - Static or dynamic instructions rendered against session state
//   - Tool calling with parallel, order preserving execution
//   - Streaming partial events
//   - Saving the final answer under an output key
//   - Handing off to sub-agents through the transfer_to_agent tool
type ModelAgent struct {
	BaseAgent
	llm                model.Model
	instruction        Instruction
	tools              []tool.Tool
	settings           model.Settings
	enableStreaming    bool
	outputKey          string
	maxHistoryMessages int
	maxTurns           int
	allowTransfer      bool
	maxParallelTools   int
	toolObserver       flow.ToolObserver
}

// NewModelAgent creates a new model-based agent with sensible defaults:
// streaming disabled, a 20 message history window, 10 turns and transfers
// allowed when sub-agents are present.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxHistoryMessages: 20,
		MaxTurns:           10,
		AllowTransfer:      true,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent:          NewBaseAgent(name),
		llm:                llm,
		instruction:        opts.Instruction,
		tools:              append([]tool.Tool(nil), opts.Tools...),
		settings:           opts.Settings,
		enableStreaming:    opts.EnableStreaming,
		outputKey:          opts.OutputKey,
		maxHistoryMessages: opts.MaxHistoryMessages,
		maxTurns:           opts.MaxTurns,
		allowTransfer:      opts.AllowTransfer,
		maxParallelTools:   opts.MaxParallelTools,
		toolObserver:       opts.ToolObserver,
	}
	a.bind(a)

	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}

	return a
}

// RegisterTools appends tools to the agent's capability set. Tools with a
// name that is already registered replace the previous registration.
func (a *ModelAgent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		replaced := false
		for i, existing := range a.tools {
			if existing.Name() == t.Name() {
				a.tools[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			a.tools = append(a.tools, t)
		}
	}
}

// GetTool retrieves a specific tool by name.
func (a *ModelAgent) GetTool(name string) (tool.Tool, bool) {
	for _, t := range a.tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// ListTools returns the names of all registered tools in registration order.
func (a *ModelAgent) ListTools() []string {
	names := make([]string, len(a.tools))
	for i, t := range a.tools {
		names[i] = t.Name()
	}
	return names
}

// GetName returns the agent's display name.
func (a *ModelAgent) GetName() string { return a.Name() }

// GetLLM returns the language model instance.
func (a *ModelAgent) GetLLM() model.Model { return a.llm }

// GetTools returns a copy of the registered tools.
func (a *ModelAgent) GetTools() []tool.Tool { return append([]tool.Tool(nil), a.tools...) }

// GetSubAgents returns the agents reachable through transfer_to_agent.
func (a *ModelAgent) GetSubAgents() []core.Agent { return a.SubAgents() }

// GetModelSettings returns per-request generation settings.
func (a *ModelAgent) GetModelSettings() model.Settings { return a.settings }

// IsStreamingEnabled returns whether streaming responses are enabled.
func (a *ModelAgent) IsStreamingEnabled() bool { return a.enableStreaming }

// IsTransferEnabled returns whether agent transfer is enabled.
func (a *ModelAgent) IsTransferEnabled() bool { return a.allowTransfer }

// GetOutputKey returns the session state key for saving responses.
func (a *ModelAgent) GetOutputKey() string { return a.outputKey }

// MaxHistoryMessages returns the maximum number of history messages sent to the model.
func (a *ModelAgent) MaxHistoryMessages() int { return a.maxHistoryMessages }

// MaxTurns returns the maximum number of model turns per run.
func (a *ModelAgent) MaxTurns() int { return a.maxTurns }

// ResolveInstructions produces the raw instruction string.
func (a *ModelAgent) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// TransferToAgent delegates execution to a named descendant agent using the
// same session and emit channel.
func (a *ModelAgent) TransferToAgent(runCtx *core.RunContext, agentName string) error {
	target := a.FindAgent(agentName)
	if target == nil {
		return fmt.Errorf("agent '%s' not found in hierarchy", agentName)
	}

	if target == core.Agent(a) {
		return fmt.Errorf("agent '%s' cannot transfer to itself", agentName)
	}

	return target.Run(runCtx.WithAgent(core.AgentInfo{Name: target.Name(), Type: "transfer"}))
}

// Run implements core.Agent using the flow selector to choose the execution
// strategy.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name())

	fl := flow.NewSelector().SelectFlow(a)
	fl.SetFunctionExecutor(flow.NewParallelFunctionExecutor(flow.FunctionExecutorConfig{
		MaxParallel:   a.maxParallelTools,
		PreserveOrder: true,
		Observer:      a.toolObserver,
	}))

	if err := fl.Run(runCtx); err != nil {
		runCtx.LogError("agent.run.error", "agent", a.Name(), "error", err.Error())
		return err
	}

	runCtx.LogDebug("agent.run.complete", "agent", a.Name())

	return nil
}
