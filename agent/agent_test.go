package agent

import (
	"context"
	"testing"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAgent for testing composite agents
type MockAgent struct {
	mock.Mock
	name string
}

func NewMockAgent(name string) *MockAgent {
	return &MockAgent{name: name}
}

func (m *MockAgent) Name() string { return m.name }

func (m *MockAgent) Description() string { return "mock " + m.name }

func (m *MockAgent) Run(runCtx *core.RunContext) error {
	args := m.Called(runCtx)
	return args.Error(0)
}

func (m *MockAgent) SetSubAgents(children ...core.Agent) error { return nil }

func (m *MockAgent) SubAgents() []core.Agent { return nil }

func (m *MockAgent) Parent() core.Agent { return nil }

func (m *MockAgent) FindAgent(name string) core.Agent {
	if name == m.name {
		return m
	}
	return nil
}

func newTestRunContext(input string) (*core.RunContext, chan core.Event) {
	sess := core.NewSession("test-session")
	content := core.NewTextContent("user", input)
	sess.AddEvent(core.NewUserContentEvent("test-run", &content))

	emit := make(chan core.Event, 128)

	return core.NewRunContext(
		context.Background(), sess.ID, "test-run",
		core.AgentInfo{Name: "root", Type: "test"}, content, 0,
		emit, sess, nil, logging.NoOpLogger{},
	), emit
}

func drain(ch chan core.Event) []core.Event {
	var out []core.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestBaseAgent_Hierarchy(t *testing.T) {
	root := NewModelAgent("Orchestrator", nil)
	planner := NewModelAgent("PlanningAgent", nil)
	reporter := NewModelAgent("ReportingAgent", nil)
	leaf := NewMockAgent("Leaf")

	require.NoError(t, reporter.SetSubAgents(leaf))
	require.NoError(t, root.SetSubAgents(planner, reporter))

	assert.Same(t, root, planner.Parent())
	assert.Nil(t, root.Parent())
	assert.Len(t, root.SubAgents(), 2)

	assert.Same(t, root, root.FindAgent("Orchestrator"))
	assert.Same(t, reporter, root.FindAgent("ReportingAgent"))
	assert.Same(t, leaf, root.FindAgent("Leaf"))
	assert.Nil(t, root.FindAgent("Nobody"))

	// Replacing the children detaches the previous ones
	require.NoError(t, root.SetSubAgents(reporter))
	assert.Nil(t, planner.Parent())
}

func TestBaseAgent_SetSubAgentsRejectsDuplicates(t *testing.T) {
	root := NewModelAgent("root", nil)
	err := root.SetSubAgents(NewMockAgent("a"), NewMockAgent("a"))
	assert.Error(t, err)

	err = root.SetSubAgents(nil)
	assert.Error(t, err)
}

func TestBaseAgent_Description(t *testing.T) {
	b := NewBaseAgent("x")
	assert.Equal(t, "Agent x", b.Description())
	b.SetDescription("Writes reports")
	assert.Equal(t, "Writes reports", b.Description())
}

func TestBuildBranchPath(t *testing.T) {
	assert.Equal(t, "child", buildBranchPath("", "child"))
	assert.Equal(t, "parent", buildBranchPath("parent", ""))
	assert.Equal(t, "parent.child", buildBranchPath("parent", "child"))
}
