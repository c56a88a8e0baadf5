package core

// Agent defines the interface every agent in the research pipeline implements.
//
// Agents receive their input through a RunContext, emit events for every
// model turn / tool response through RunContext.EmitEvent and return when
// their work is complete. Implementations must:
//   - Respect context cancellation
//   - Be safe to run concurrently with distinct RunContexts (agents are
//     reused as tools by several parents)
type Agent interface {
	Name() string
	Description() string
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
}

// AgentInfo carries identifying details about an agent used in contexts & events.
// Name is the external identifier; Type categorizes implementation (e.g. "model", "sequential").
type AgentInfo struct{ Name, Type string }
