package flow

// Selector determines which flow to use based on agent capabilities.
type Selector struct{}

// NewSelector creates a new flow selector.
func NewSelector() *Selector { return &Selector{} }

// SelectFlow chooses SingleAgentFlow for isolated agents and MultiAgentFlow
// for agents that may hand off to sub-agents.
func (s *Selector) SelectFlow(agent FlowAgent) *BaseFlow {
	if !agent.IsTransferEnabled() || len(agent.GetSubAgents()) == 0 {
		return NewSingleAgentFlow(agent).BaseFlow
	}
	return NewMultiAgentFlow(agent).BaseFlow
}
