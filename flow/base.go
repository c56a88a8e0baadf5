package flow

import (
	"fmt"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/model"
)

// BaseFlow is a single-agent flow that supports a request -> model ->
// (optional tool loop) cycle with pluggable request processors.
type BaseFlow struct {
	agent             FlowAgent
	requestProcessors []RequestProcessor
	executor          FunctionExecutor
}

// NewBaseFlow creates a new basic single-agent flow using the default
// order preserving parallel function executor.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:             agent,
		requestProcessors: []RequestProcessor{},
		executor:          NewParallelFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true}),
	}
}

// AddRequestProcessor appends a request processor; registration order defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// SetFunctionExecutor replaces the function executor.
func (f *BaseFlow) SetFunctionExecutor(e FunctionExecutor) { f.executor = e }

// Run loops over model turns until a final answer, a handoff, a
// skip-summarization tool response or an error.
func (f *BaseFlow) Run(runCtx *core.RunContext) error {
	maxTurns := f.agent.MaxTurns()

	for turn := 0; ; turn++ {
		if err := runCtx.Err(); err != nil {
			return err
		}

		if maxTurns > 0 && turn >= maxTurns {
			f.emitError(runCtx, "MAX_TURNS", ErrMaxTurnsExceeded)
			return fmt.Errorf("agent %s: %w (%d)", f.agent.GetName(), ErrMaxTurnsExceeded, maxTurns)
		}

		final, err := f.runOnce(runCtx)
		if err != nil {
			return err
		}

		fnCalls := final.GetFunctionCalls()
		if len(fnCalls) == 0 {
			return nil
		}

		done, err := f.handleFunctionCalls(runCtx, fnCalls)
		if err != nil || done {
			return err
		}
	}
}

// runOnce performs one model turn and returns the emitted final event.
func (f *BaseFlow) runOnce(runCtx *core.RunContext) (core.Event, error) {
	if runCtx.Limiter != nil {
		if err := runCtx.Limiter.Increment(); err != nil {
			f.emitError(runCtx, "MODEL_LIMIT", err)
			return core.Event{}, err
		}
	}

	req := new(model.Request)
	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			err = fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
			f.emitError(runCtx, "REQUEST_ERROR", err)
			return core.Event{}, err
		}
	}

	respCh, errCh := f.agent.GetLLM().Generate(runCtx.Context, *req)

	var (
		final    *model.Response
		emitErr  error
		partials int
	)

	for resp := range respCh {
		if emitErr != nil {
			continue
		}

		if resp.Partial {
			partials++
			ev := f.newEvent(runCtx, resp)
			emitErr = runCtx.EmitEvent(ev)
			continue
		}

		r := resp
		final = &r
	}

	if err := <-errCh; err != nil {
		runCtx.LogError("flow.model.error", "agent", f.agent.GetName(), "error", err.Error())
		f.emitError(runCtx, "MODEL_ERROR", err)
		return core.Event{}, fmt.Errorf("agent %s: model call failed: %w", f.agent.GetName(), err)
	}

	if emitErr != nil {
		return core.Event{}, emitErr
	}

	if final == nil {
		err := fmt.Errorf("agent %s: model returned no final response", f.agent.GetName())
		f.emitError(runCtx, "MODEL_ERROR", err)
		return core.Event{}, err
	}

	ev := f.newEvent(runCtx, *final)

	if len(ev.GetFunctionCalls()) == 0 {
		complete := true
		ev.TurnComplete = &complete

		if key := f.agent.GetOutputKey(); key != "" {
			runCtx.SetState(key, ev.Text())
		}
	}

	runCtx.LogDebug(
		"flow.turn.complete",
		"agent", f.agent.GetName(),
		"partials", partials,
		"fn_calls", len(ev.GetFunctionCalls()),
		"finish_reason", final.FinishReason,
	)

	if err := runCtx.EmitEvent(ev); err != nil {
		return core.Event{}, err
	}

	return ev, nil
}

// handleFunctionCalls executes tool calls and reports whether the agent is
// done (handoff or skip-summarization).
func (f *BaseFlow) handleFunctionCalls(runCtx *core.RunContext, fnCalls []core.FunctionCall) (bool, error) {
	var (
		transferTo string
		skip       bool
	)

	emit := func(ev core.Event) error {
		if ev.Actions.TransferToAgent != nil && transferTo == "" {
			transferTo = *ev.Actions.TransferToAgent
		}
		if ev.Actions.SkipSummarization != nil && *ev.Actions.SkipSummarization {
			skip = true
		}
		return runCtx.EmitEvent(ev)
	}

	tools := f.agent.GetTools()
	if transfer := transferTool(f.agent); transfer != nil {
		tools = append(tools, transfer)
	}

	if err := f.executor.Execute(runCtx, f.agent.GetName(), tools, fnCalls, emit); err != nil {
		return true, err
	}

	if transferTo != "" {
		runCtx.LogInfo("flow.transfer", "from_agent", f.agent.GetName(), "to_agent", transferTo)
		return true, f.agent.TransferToAgent(runCtx, transferTo)
	}

	return skip, nil
}

func (f *BaseFlow) newEvent(runCtx *core.RunContext, resp model.Response) core.Event {
	ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
	content := resp.Content
	if content.Role == "" {
		content.Role = "assistant"
	}
	ev.Content = &content

	if resp.Partial {
		partial := true
		ev.Partial = &partial
	}

	return ev
}

// emitError converts an internal error to an error Event. Emission failures
// are ignored because the caller returns the original error anyway.
func (f *BaseFlow) emitError(runCtx *core.RunContext, code string, err error) {
	_ = runCtx.EmitEvent(core.NewErrorEvent(runCtx.RunID, f.agent.GetName(), code, err))
}
