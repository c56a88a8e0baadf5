package flow

// SingleAgentFlow implements a basic execution flow for a standalone agent
// (no transfers). It wires processors for instruction resolution, history
// assembly and tool definitions.
type SingleAgentFlow struct{ *BaseFlow }

// NewSingleAgentFlow creates a new basic single-agent flow.
func NewSingleAgentFlow(agent FlowAgent) *SingleAgentFlow {
	baseFlow := NewBaseFlow(agent)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())
	baseFlow.AddRequestProcessor(NewToolsProcessor())

	return &SingleAgentFlow{BaseFlow: baseFlow}
}
