package flow

import (
	"context"
	"time"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/tool"
)

type mockFlowAgent struct {
	name        string
	llm         model.Model
	instruction string
	tools       []tool.Tool
	subAgents   []core.Agent
	settings    model.Settings
	streaming   bool
	transfer    bool
	outputKey   string
	maxHistory  int
	maxTurns    int
	transferred []string
}

func (a *mockFlowAgent) GetName() string { return a.name }
func (a *mockFlowAgent) GetLLM() model.Model { return a.llm }
func (a *mockFlowAgent) GetTools() []tool.Tool { return a.tools }
func (a *mockFlowAgent) GetSubAgents() []core.Agent { return a.subAgents }
func (a *mockFlowAgent) GetModelSettings() model.Settings { return a.settings }
func (a *mockFlowAgent) IsStreamingEnabled() bool { return a.streaming }
func (a *mockFlowAgent) IsTransferEnabled() bool { return a.transfer }
func (a *mockFlowAgent) GetOutputKey() string { return a.outputKey }
func (a *mockFlowAgent) MaxHistoryMessages() int { return a.maxHistory }
func (a *mockFlowAgent) MaxTurns() int { return a.maxTurns }
func (a *mockFlowAgent) ResolveInstructions(*core.RunContext) (string, error) {
	return a.instruction, nil
}
func (a *mockFlowAgent) TransferToAgent(_ *core.RunContext, name string) error {
	a.transferred = append(a.transferred, name)
	return nil
}

// stubAgent satisfies core.Agent for sub-agent listings.
type stubAgent struct{ name string }

func (s stubAgent) Name() string { return s.name }
func (s stubAgent) Description() string { return s.name }
func (s stubAgent) Run(*core.RunContext) error { return nil }
func (s stubAgent) SetSubAgents(...core.Agent) error { return nil }
func (s stubAgent) SubAgents() []core.Agent { return nil }
func (s stubAgent) Parent() core.Agent { return nil }
func (s stubAgent) FindAgent(name string) core.Agent { return nil }

type mockTool struct {
	name       string
	delay      time.Duration
	result     any
	err        error
	panicMsg   any
	state      map[string]any
	transferTo string
	skip       bool
}

func (mt *mockTool) Name() string { return mt.name }
func (mt *mockTool) Description() string { return "mock tool " + mt.name }
func (mt *mockTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (mt *mockTool) Call(tc *core.ToolContext, _ map[string]any) (any, error) {
	if mt.delay > 0 {
		select {
		case <-time.After(mt.delay):
		case <-tc.Context().Done():
			return nil, tc.Context().Err()
		}
	}
	if mt.panicMsg != nil {
		panic(mt.panicMsg)
	}
	for k, v := range mt.state {
		tc.SetState(k, v)
	}
	if mt.transferTo != "" {
		tc.TransferToAgent(mt.transferTo)
	}
	if mt.skip {
		tc.SkipSummarization()
	}
	return mt.result, mt.err
}

func newTestRunContext(ctx context.Context, user string) (*core.RunContext, chan core.Event) {
	emit := make(chan core.Event, 256)
	sess := core.NewSession("sess")
	userContent := core.NewTextContent("user", user)
	sess.AddEvent(core.NewUserContentEvent("run", &userContent))

	return core.NewRunContext(
		ctx, "sess", "run",
		core.AgentInfo{Name: "agent", Type: "model"}, userContent, 0,
		emit, sess, nil, logging.NoOpLogger{},
	), emit
}

func collect(ch chan core.Event) []core.Event {
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
