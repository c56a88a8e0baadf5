package flow

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/tool"
)

// FunctionExecutor executes a batch of function/tool calls and emits one
// function response event per call. Implementations must:
//   - Respect runCtx.Context cancellation
//   - Never panic (recover internally and report the panic as a tool error)
//   - Apply ToolContext accumulated actions to emitted events
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, agentName string, tools []tool.Tool, fnCalls []core.FunctionCall, emit func(core.Event) error) error
}

// ToolObserver is notified after every tool execution. Parallel tool calls
// invoke it from their own goroutines, so implementations must be safe for
// concurrent use.
type ToolObserver func(toolName string, duration time.Duration, err error)

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel   int  // 0 or <1 => no explicit limit (len(fnCalls))
	PreserveOrder bool // if true, buffer results and emit in original call order
	Observer      ToolObserver
}

// parallelFunctionExecutor is the default implementation.
type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs a new executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

func (e *parallelFunctionExecutor) Execute(
	runCtx *core.RunContext,
	agentName string,
	tools []tool.Tool,
	fnCalls []core.FunctionCall,
	emit func(core.Event) error,
) error {
	n := len(fnCalls)
	if n == 0 {
		return nil
	}

	registry := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		registry[t.Name()] = t
	}

	if n == 1 {
		return emit(e.executeOne(runCtx, agentName, registry, fnCalls[0]))
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var (
		results = make([]core.Event, n)
		mu      sync.Mutex
		wg      sync.WaitGroup
		emitErr error
		sem     = make(chan struct{}, maxPar)
	)

	batchStart := time.Now()

	for i := range fnCalls {
		if runCtx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()

			ev := e.executeOne(runCtx, agentName, registry, fc)

			if e.cfg.PreserveOrder {
				results[idx] = ev
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if emitErr == nil {
				emitErr = emit(ev)
			}
		}(i, fnCalls[i])
	}

	wg.Wait()

	if err := runCtx.Err(); err != nil {
		return err
	}

	if e.cfg.PreserveOrder {
		for _, ev := range results {
			if ev.ID == "" {
				continue
			}
			if err := emit(ev); err != nil {
				return err
			}
		}
	}

	runCtx.LogDebug(
		"agent.functions.batch.complete",
		"agent", agentName,
		"count", n,
		"parallelism", maxPar,
		"preserve_order", e.cfg.PreserveOrder,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return emitErr
}

func (e *parallelFunctionExecutor) executeOne(
	runCtx *core.RunContext,
	agentName string,
	registry map[string]tool.Tool,
	fc core.FunctionCall,
) core.Event {
	toolCtx := core.NewToolContext(runCtx, fc.ID)

	start := time.Now()

	var (
		result any
		err    error
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				runCtx.LogError("agent.function.panic", "agent", agentName, "function", fc.Name, "recover", r, "stack", string(debug.Stack()))
			}
		}()
		result, err = executeTool(registry, toolCtx, fc.Name, fc.Arguments)
	}()

	dur := time.Since(start)

	runCtx.LogInfo(
		"agent.function.executed",
		"agent", agentName,
		"function", fc.Name,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	if e.cfg.Observer != nil {
		e.cfg.Observer(fc.Name, dur, err)
	}

	respEv := core.NewFunctionResponseEvent(agentName, fc.ID, fc.Name, result, err)
	respEv.InvocationID = runCtx.RunID
	toolCtx.InternalApplyActions(&respEv)

	return respEv
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return fmt.Errorf("panic recovered: %v", r) }

// executeTool centralizes tool lookup, argument decoding and execution.
func executeTool(registry map[string]tool.Tool, toolCtx *core.ToolContext, toolName, args string) (any, error) {
	impl, ok := registry[toolName]
	if !ok {
		return nil, tool.NewToolError(toolName, fmt.Sprintf("tool %s not found", toolName), tool.CodeValidation)
	}

	argMap := map[string]any{}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argMap); err != nil {
			return nil, tool.NewToolError(toolName, fmt.Sprintf("failed to unmarshal args: %v", err), tool.CodeValidation)
		}
	}

	return impl.Call(toolCtx, argMap)
}
