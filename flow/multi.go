package flow

// MultiAgentFlow orchestrates an agent that may perform tool calls and
// transfer control to sub-agents.
type MultiAgentFlow struct{ *BaseFlow }

// NewMultiAgentFlow creates a multi-agent flow with the transfer tool injected.
func NewMultiAgentFlow(agent FlowAgent) *MultiAgentFlow {
	baseFlow := NewBaseFlow(agent)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())
	baseFlow.AddRequestProcessor(NewToolsProcessor())
	baseFlow.AddRequestProcessor(NewTransferToolInjector())

	return &MultiAgentFlow{BaseFlow: baseFlow}
}
