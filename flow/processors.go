package flow

import (
	"fmt"

	"github.com/hupe1980/deepresearch/core"
	internalutil "github.com/hupe1980/deepresearch/internal/util"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/tool"
)

// InstructionsProcessor resolves the agent instruction and renders it as a
// template over the current session state.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets req.Instructions.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	req.Instructions, err = internalutil.RenderTemplate(instructions, runCtx.State())
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	runCtx.LogDebug("agent.instruction.resolved", "agent", agent.GetName(), "length", len(req.Instructions))

	return nil
}

// ContentsProcessor adds the conversation history of the session.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest sets req.Contents from the session history, keeping at most
// MaxHistoryMessages entries. A window never starts with a tool response
// whose originating call was cut off.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	events := runCtx.GetSessionHistory()

	if limit := agent.MaxHistoryMessages(); limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
		for len(events) > 0 && events[0].Content.Role == "tool" {
			events = events[1:]
		}
	}

	contents := make([]core.Content, 0, len(events))
	for _, ev := range events {
		if ev.Content != nil && len(ev.Content.Parts) > 0 {
			contents = append(contents, *ev.Content)
		}
	}

	if len(contents) == 0 && len(runCtx.UserContent.Parts) > 0 {
		contents = append(contents, runCtx.UserContent)
	}

	req.Contents = contents

	return nil
}

// ToolsProcessor adds tool definitions, model settings and the streaming flag.
type ToolsProcessor struct{}

// NewToolsProcessor creates a new tools processor.
func NewToolsProcessor() *ToolsProcessor { return &ToolsProcessor{} }

// Name returns the processor's identifier.
func (p *ToolsProcessor) Name() string { return "tools" }

// ProcessRequest sets req.Tools, req.Settings and req.Stream. A required
// tool choice is relaxed to auto once the agent has received a tool
// response, so the model can answer instead of calling tools forever.
func (p *ToolsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	for _, t := range agent.GetTools() {
		req.Tools = append(req.Tools, definitionOf(t))
	}

	req.Settings = agent.GetModelSettings()

	switch {
	case len(req.Tools) == 0:
		req.Settings.ToolChoice = ""
	case req.Settings.ToolChoice == model.ToolChoiceRequired && hasToolResponse(runCtx, agent.GetName()):
		req.Settings.ToolChoice = model.ToolChoiceAuto
	}

	req.Stream = agent.IsStreamingEnabled()

	return nil
}

func hasToolResponse(runCtx *core.RunContext, agentName string) bool {
	for _, ev := range runCtx.GetSessionHistory() {
		if ev.Author == agentName && len(ev.GetFunctionResponses()) > 0 {
			return true
		}
	}
	return false
}

// TransferToolInjector adds the transfer_to_agent tool definition when the
// agent may hand off to sub-agents.
type TransferToolInjector struct{}

// NewTransferToolInjector creates a new transfer tool injector.
func NewTransferToolInjector() *TransferToolInjector { return &TransferToolInjector{} }

// Name returns the processor's identifier.
func (p *TransferToolInjector) Name() string { return "transfer_injector" }

// ProcessRequest appends the transfer definition once, listing the sub-agent
// names as allowed targets.
func (p *TransferToolInjector) ProcessRequest(_ *core.RunContext, req *model.Request, agent FlowAgent) error {
	transfer := transferTool(agent)
	if transfer == nil {
		return nil
	}

	for _, td := range req.Tools {
		if td.Function.Name == tool.TransferToAgentName {
			return nil
		}
	}

	req.Tools = append(req.Tools, definitionOf(transfer))

	return nil
}

// transferTool returns the handoff tool for agent or nil when it cannot hand off.
func transferTool(agent FlowAgent) tool.Tool {
	subAgents := agent.GetSubAgents()
	if !agent.IsTransferEnabled() || len(subAgents) == 0 {
		return nil
	}

	names := make([]string, len(subAgents))
	for i, a := range subAgents {
		names[i] = a.Name()
	}

	return tool.NewTransferToAgentTool(names...)
}

func definitionOf(t tool.Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}
