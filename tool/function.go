package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/internal/util"
)

// Func is the signature of functions wrapped by FunctionTool.
type Func func(toolCtx *core.ToolContext, args map[string]any) (any, error)

// FailureFunc converts an execution error into a result that is handed back
// to the model in place of the error.
type FailureFunc func(toolCtx *core.ToolContext, err error) any

// FunctionToolOptions configures a FunctionTool.
type FunctionToolOptions struct {
	// FailureFunc, when set, turns execution errors into results. Validation
	// errors are never converted.
	FailureFunc FailureFunc
}

// FunctionTool exposes a plain Go function as a tool.
//
// Arguments are validated against the parameter schema before the function
// runs. Errors are normalized into *ToolError:
//
//	VALIDATION_ERROR  -> schema / argument mismatch
//	EXECUTION_ERROR   -> the function returned a non-ToolError error
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          Func
	opts        FunctionToolOptions
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
//	searchTool := NewFunctionTool(
//	  "fetch_web_data",
//	  "Search the web for recent results",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{"query": map[string]any{"type": "string"}},
//	    "required": []string{"query"},
//	  },
//	  fetch,
//	  func(o *FunctionToolOptions) { o.FailureFunc = unavailable },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn Func,
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	opts := FunctionToolOptions{}
	for _, f := range optFns {
		f(&opts)
	}

	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
		opts:        opts,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection (see util.CreateSchema).
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn Func,
	optFns ...func(o *FunctionToolOptions),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn, optFns...)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args then invokes the wrapped function.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		var toolErr *ToolError
		isToolErr := errors.As(err, &toolErr)

		if t.opts.FailureFunc != nil && toolCtx.Context().Err() == nil && !(isToolErr && toolErr.Code == CodeValidation) {
			logger.Warn("tool.call.failure_handled", "tool", t.name, "error", err.Error())
			return t.opts.FailureFunc(toolCtx, err), nil
		}

		if isToolErr {
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)
			return nil, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
			Details: err,
		}
	}

	logger.Debug("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// Unwrap exposes the underlying error stored in Details, if any.
func (e *ToolError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// StaticFailure returns a FailureFunc that always yields {"error": message}.
func StaticFailure(message string) FailureFunc {
	return func(*core.ToolContext, error) any {
		return map[string]string{"error": message}
	}
}
