package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseFlow_TextAnswer(t *testing.T) {
	rc, emit := newTestRunContext(context.Background(), "plan ai news")
	llm := model.NewScriptedModel(model.TextResponse("1. Search\n2. Read"))

	agent := &mockFlowAgent{name: "PlanningAgent", llm: llm, outputKey: "plan", streaming: true}

	require.NoError(t, NewSelector().SelectFlow(agent).Run(rc))

	events := collect(emit)
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.False(t, last.IsPartial())
	assert.Equal(t, "1. Search\n2. Read", last.Text())
	assert.Equal(t, "1. Search\n2. Read", last.Actions.StateDelta["plan"])

	partials := 0
	for _, ev := range events[:len(events)-1] {
		if ev.IsPartial() {
			partials++
		}
	}
	assert.Greater(t, partials, 1)

	v, ok := rc.Session.GetState("plan")
	assert.True(t, ok)
	assert.Equal(t, "1. Search\n2. Read", v)
}

func TestBaseFlow_ToolLoop(t *testing.T) {
	rc, emit := newTestRunContext(context.Background(), "search")
	llm := model.NewScriptedModel(
		model.ToolCallResponse(core.FunctionCall{ID: "c1", Name: "lookup", Arguments: `{}`}),
		model.TextResponse("found it"),
	)

	agent := &mockFlowAgent{
		name:     "WebSearchAgent",
		llm:      llm,
		tools:    []tool.Tool{&mockTool{name: "lookup", result: "[]"}},
		settings: model.Settings{ToolChoice: model.ToolChoiceRequired, MaxTokens: 1000},
	}

	require.NoError(t, NewSelector().SelectFlow(agent).Run(rc))

	events := collect(emit)
	require.Len(t, events, 3)
	assert.Len(t, events[0].GetFunctionCalls(), 1)
	assert.Len(t, events[1].GetFunctionResponses(), 1)
	assert.Equal(t, "found it", events[2].Text())

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, model.ToolChoiceRequired, reqs[0].Settings.ToolChoice)
	assert.Equal(t, model.ToolChoiceAuto, reqs[1].Settings.ToolChoice)
	require.Len(t, reqs[0].Tools, 1)
	// Second turn sees the call and the tool response
	assert.Len(t, reqs[1].Contents, 3)
	assert.Equal(t, "tool", reqs[1].Contents[2].Role)
}

func TestBaseFlow_Transfer(t *testing.T) {
	rc, _ := newTestRunContext(context.Background(), "route")
	llm := model.NewScriptedModel(
		model.ToolCallResponse(core.FunctionCall{ID: "t", Name: tool.TransferToAgentName, Arguments: `{"agent":"ReportingAgent"}`}),
	)

	agent := &mockFlowAgent{
		name:      "Orchestrator",
		llm:       llm,
		transfer:  true,
		subAgents: []core.Agent{stubAgent{name: "ReportingAgent"}},
	}

	require.NoError(t, NewSelector().SelectFlow(agent).Run(rc))
	assert.Equal(t, []string{"ReportingAgent"}, agent.transferred)

	req := llm.Requests()[0]
	require.Len(t, req.Tools, 1)
	assert.Equal(t, tool.TransferToAgentName, req.Tools[0].Function.Name)
}

func TestBaseFlow_SkipSummarization(t *testing.T) {
	rc, _ := newTestRunContext(context.Background(), "x")
	llm := model.NewScriptedModel(model.ToolCallResponse(core.FunctionCall{ID: "1", Name: "final"}))

	agent := &mockFlowAgent{name: "a", llm: llm, tools: []tool.Tool{&mockTool{name: "final", skip: true}}}

	require.NoError(t, NewSelector().SelectFlow(agent).Run(rc))
	assert.Len(t, llm.Requests(), 1)
}

func TestBaseFlow_MaxTurns(t *testing.T) {
	rc, emit := newTestRunContext(context.Background(), "loop")
	llm := model.NewHandlerModel(func(model.Request) (model.Response, error) {
		return model.ToolCallResponse(core.FunctionCall{ID: "1", Name: "again"}), nil
	})

	agent := &mockFlowAgent{name: "a", llm: llm, maxTurns: 2, tools: []tool.Tool{&mockTool{name: "again", result: "ok"}}}

	err := NewSelector().SelectFlow(agent).Run(rc)
	require.ErrorIs(t, err, ErrMaxTurnsExceeded)
	assert.Len(t, llm.Requests(), 2)

	events := collect(emit)
	assert.True(t, events[len(events)-1].IsError())
}

func TestBaseFlow_ModelError(t *testing.T) {
	rc, emit := newTestRunContext(context.Background(), "x")
	boom := errors.New("rate limited")

	agent := &mockFlowAgent{name: "a", llm: model.NewScriptedModel().Fail(boom)}

	err := NewSelector().SelectFlow(agent).Run(rc)
	require.ErrorIs(t, err, boom)

	events := collect(emit)
	require.Len(t, events, 1)
	assert.Equal(t, "MODEL_ERROR", *events[0].ErrorCode)
}

func TestBaseFlow_ModelLimiter(t *testing.T) {
	rc, _ := newTestRunContext(context.Background(), "x")
	rc.Limiter = core.NewModelLimiter(1)

	llm := model.NewHandlerModel(func(model.Request) (model.Response, error) {
		return model.ToolCallResponse(core.FunctionCall{ID: "1", Name: "again"}), nil
	})
	agent := &mockFlowAgent{name: "a", llm: llm, tools: []tool.Tool{&mockTool{name: "again"}}}

	err := NewSelector().SelectFlow(agent).Run(rc)
	require.ErrorIs(t, err, core.ErrModelCallLimit)
}
