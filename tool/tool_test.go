package tool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newToolContext(ctx context.Context, emit chan<- core.Event) *core.ToolContext {
	sess := core.NewSession("s")
	rc := core.NewRunContext(ctx, "s", "r", core.AgentInfo{Name: "parent", Type: "model"},
		core.NewTextContent("user", "hi"), 0, emit, sess, nil, logging.NoOpLogger{})
	return core.NewToolContext(rc, "fc-1")
}

var queryParams = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{"type": "string"},
	},
	"required": []string{"query"},
}

func TestFunctionTool_Call(t *testing.T) {
	ft := NewFunctionTool("echo", "echoes", queryParams, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return "got " + args["query"].(string), nil
	})

	assert.Equal(t, "echo", ft.Name())
	assert.Equal(t, "echoes", ft.Description())

	out, err := ft.Call(newToolContext(context.Background(), nil), map[string]any{"query": "ai"})
	require.NoError(t, err)
	assert.Equal(t, "got ai", out)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	called := false
	ft := NewFunctionTool("echo", "", queryParams, func(*core.ToolContext, map[string]any) (any, error) {
		called = true
		return nil, nil
	}, func(o *FunctionToolOptions) { o.FailureFunc = StaticFailure("unavailable") })

	_, err := ft.Call(newToolContext(context.Background(), nil), map[string]any{})
	require.Error(t, err)
	assert.False(t, called)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeValidation, te.Code)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	boom := errors.New("upstream 500")
	ft := NewFunctionTool("search", "", queryParams, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, boom
	})

	_, err := ft.Call(newToolContext(context.Background(), nil), map[string]any{"query": "x"})

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeExecution, te.Code)
	assert.ErrorIs(t, err, boom)
}

func TestFunctionTool_FailureFunc(t *testing.T) {
	ft := NewFunctionTool("search", "", queryParams, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, errors.New("quota exceeded")
	}, func(o *FunctionToolOptions) {
		o.FailureFunc = StaticFailure("Tavily web search unavailable. Falling back to other sources...")
	})

	out, err := ft.Call(newToolContext(context.Background(), nil), map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"error": "Tavily web search unavailable. Falling back to other sources..."}, out)
}

func TestFunctionTool_FailureFuncSkipsValidationFromFunc(t *testing.T) {
	ft := NewFunctionTool("search", "", queryParams, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, NewToolError("search", "field 'query' must be a non-empty string", CodeValidation)
	}, func(o *FunctionToolOptions) { o.FailureFunc = StaticFailure("unavailable") })

	out, err := ft.Call(newToolContext(context.Background(), nil), map[string]any{"query": "  "})
	assert.Nil(t, out)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeValidation, te.Code)
}

func TestFunctionTool_FailureFuncSkippedWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ft := NewFunctionTool("search", "", queryParams, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		return nil, tc.Context().Err()
	}, func(o *FunctionToolOptions) { o.FailureFunc = StaticFailure("unavailable") })

	_, err := ft.Call(newToolContext(ctx, nil), map[string]any{"query": "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFunctionToolFromStruct(t *testing.T) {
	type args struct {
		Query string `json:"query" description:"Search query"`
		Limit int    `json:"limit,omitempty"`
	}

	ft := NewFunctionToolFromStruct("fetch", "", args{}, func(*core.ToolContext, map[string]any) (any, error) {
		return "ok", nil
	})

	props := ft.Parameters()["properties"].(map[string]any)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")

	_, err := ft.Call(newToolContext(context.Background(), nil), map[string]any{"limit": 3.0})
	assert.Error(t, err)
}

func TestFunctionTool_Concurrent(t *testing.T) {
	ft := NewFunctionTool("echo", "", queryParams, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["query"], nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := ft.Call(newToolContext(context.Background(), nil), map[string]any{"query": "q"})
			assert.NoError(t, err)
			assert.Equal(t, "q", out)
		}()
	}
	wg.Wait()
}

func TestTransferToAgentTool(t *testing.T) {
	tr := NewTransferToAgentTool("ReportingAgent", "WebSearchAgent")
	assert.Equal(t, TransferToAgentName, tr.Name())

	tc := newToolContext(context.Background(), nil)
	out, err := tr.Call(tc, map[string]any{"agent": "ReportingAgent"})
	require.NoError(t, err)
	assert.Equal(t, true, out.(map[string]any)["transferred"])
	require.NotNil(t, tc.Actions().TransferToAgent)
	assert.Equal(t, "ReportingAgent", *tc.Actions().TransferToAgent)

	_, err = tr.Call(newToolContext(context.Background(), nil), map[string]any{"agent": "Nobody"})
	assert.Error(t, err)

	_, err = tr.Call(newToolContext(context.Background(), nil), map[string]any{})
	assert.Error(t, err)
}

// scriptedAgent emits a partial chunk followed by a final answer.
type scriptedAgent struct {
	name   string
	answer string
	err    error
	seen   string
}

func (a *scriptedAgent) Name() string                     { return a.name }
func (a *scriptedAgent) Description() string              { return "scripted " + a.name }
func (a *scriptedAgent) SetSubAgents(...core.Agent) error { return nil }
func (a *scriptedAgent) SubAgents() []core.Agent          { return nil }
func (a *scriptedAgent) Parent() core.Agent               { return nil }
func (a *scriptedAgent) FindAgent(string) core.Agent      { return nil }

func (a *scriptedAgent) Run(rc *core.RunContext) error {
	a.seen = rc.UserContent.Text()
	if a.err != nil {
		return a.err
	}

	partial := core.NewMessageEvent(a.name, a.answer[:1])
	p := true
	partial.Partial = &p
	if err := rc.EmitEvent(partial); err != nil {
		return err
	}

	return rc.EmitEvent(core.NewMessageEvent(a.name, a.answer))
}

func TestAgentTool_Call(t *testing.T) {
	agent := &scriptedAgent{name: "PlanningAgent", answer: "1. Search"}
	at := NewAgentTool(agent)

	assert.Equal(t, "PlanningAgent", at.Name())
	assert.Equal(t, "scripted PlanningAgent", at.Description())
	assert.Same(t, agent, at.Agent())

	parentEmit := make(chan core.Event, 8)
	out, err := at.Call(newToolContext(context.Background(), parentEmit), map[string]any{"input": "plan ai"})
	require.NoError(t, err)
	assert.Equal(t, "1. Search", out)
	assert.Equal(t, "plan ai", agent.seen)

	require.Len(t, parentEmit, 1)
	forwarded := <-parentEmit
	assert.True(t, forwarded.IsPartial())
	require.NotNil(t, forwarded.Branch)
	assert.Equal(t, "PlanningAgent", *forwarded.Branch)
}

func TestAgentTool_Options(t *testing.T) {
	agent := &scriptedAgent{name: "ReportingAgent", answer: "# Report"}
	at := NewAgentTool(agent, func(o *AgentToolOptions) {
		o.Name = "write_report"
		o.ForwardPartials = false
	})

	parentEmit := make(chan core.Event, 8)
	out, err := at.Call(newToolContext(context.Background(), parentEmit), map[string]any{"input": "results"})
	require.NoError(t, err)
	assert.Equal(t, "# Report", out)
	assert.Equal(t, "write_report", at.Name())
	assert.Empty(t, parentEmit)
}

func TestAgentTool_Errors(t *testing.T) {
	at := NewAgentTool(&scriptedAgent{name: "A", err: errors.New("model down")})

	_, err := at.Call(newToolContext(context.Background(), nil), map[string]any{"input": "  "})
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeValidation, te.Code)

	_, err = at.Call(newToolContext(context.Background(), nil), map[string]any{"input": "go"})
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeExecution, te.Code)
	assert.Contains(t, err.Error(), "model down")
}
