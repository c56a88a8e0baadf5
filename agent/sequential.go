package agent

import (
	"fmt"

	"github.com/hupe1980/deepresearch/core"
)

// SequentialAgent executes child agents one after another. Children share the
// session, so state written by one step (for example through an output key)
// is visible to the next. Execution stops at the first error.
type SequentialAgent struct {
	BaseAgent
}

// NewSequentialAgent creates a sequential coordinator. The children become
// its sub-agents.
func NewSequentialAgent(name string, children ...core.Agent) (*SequentialAgent, error) {
	s := &SequentialAgent{BaseAgent: NewBaseAgent(name)}
	s.bind(s)

	if err := s.SetSubAgents(children...); err != nil {
		return nil, err
	}

	return s, nil
}

// Run implements core.Agent. Each child runs on a branch derived from the
// current one.
func (s *SequentialAgent) Run(runCtx *core.RunContext) error {
	for i, child := range s.SubAgents() {
		if err := runCtx.Err(); err != nil {
			return err
		}

		childCtx := runCtx.WithBranch(buildBranchPath(runCtx.Branch, child.Name()))
		childCtx.Agent = core.AgentInfo{Name: child.Name(), Type: "sequential_step"}

		// The staged delta travels with the first child's context.
		clear(runCtx.StateDelta)

		runCtx.LogDebug("agent.sequential.step", "agent", s.Name(), "step", i, "child", child.Name())

		if err := child.Run(childCtx); err != nil {
			return fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}
	}

	return nil
}
