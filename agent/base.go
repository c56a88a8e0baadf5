package agent

import (
	"fmt"
	"sync"

	"github.com/hupe1980/deepresearch/core"
)

// BaseAgent bundles hierarchy management and identity helpers. Embed it in
// concrete agent implementations, supply a Run method and call bind with the
// outer value so hierarchy lookups return the concrete agent. All exported
// methods are goroutine-safe.
type BaseAgent struct {
	name        string
	description string
	mu          sync.RWMutex
	self        core.Agent
	parent      core.Agent
	subAgents   []core.Agent
}

// NewBaseAgent constructs a BaseAgent with a generated description.
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// bind records the concrete agent embedding this BaseAgent.
func (b *BaseAgent) bind(self core.Agent) { b.self = self }

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.description
}

// SetDescription updates the agent's description. Descriptions are shown to
// models when the agent is exposed as a tool or transfer target.
func (b *BaseAgent) SetDescription(desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.description = desc
}

// SetSubAgents atomically replaces the child agent set, clearing previous
// parent links then assigning this agent as the parent of each new child.
func (b *BaseAgent) SetSubAgents(children ...core.Agent) error {
	seen := make(map[string]struct{}, len(children))
	for _, child := range children {
		if child == nil {
			return fmt.Errorf("agent %s: nil sub-agent", b.name)
		}
		if _, dup := seen[child.Name()]; dup {
			return fmt.Errorf("agent %s: duplicate sub-agent %q", b.name, child.Name())
		}
		seen[child.Name()] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, child := range b.subAgents {
		if setter, ok := child.(interface{ setParent(core.Agent) }); ok {
			setter.setParent(nil)
		}
	}

	b.subAgents = nil

	for _, child := range children {
		if setter, ok := child.(interface{ setParent(core.Agent) }); ok {
			setter.setParent(b.self)
		}
		b.subAgents = append(b.subAgents, child)
	}

	return nil
}

func (b *BaseAgent) setParent(p core.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = p
}

// Parent returns the current parent agent or nil if this agent is root.
func (b *BaseAgent) Parent() core.Agent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.parent
}

// SubAgents returns a shallow copy of current child agents for safe iteration.
func (b *BaseAgent) SubAgents() []core.Agent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]core.Agent, len(b.subAgents))
	copy(result, b.subAgents)
	return result
}

// FindAgent performs a depth-first search over the subtree rooted at this
// agent (including itself) returning the first agent whose Name matches.
func (b *BaseAgent) FindAgent(name string) core.Agent {
	if b.name == name && b.self != nil {
		return b.self
	}

	for _, child := range b.SubAgents() {
		if child.Name() == name {
			return child
		}
		if found := child.FindAgent(name); found != nil {
			return found
		}
	}

	return nil
}
