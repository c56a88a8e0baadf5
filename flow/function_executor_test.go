package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelFunctionExecutor_PreservesOrder(t *testing.T) {
	rc, _ := newTestRunContext(context.Background(), "hi")

	tools := []tool.Tool{
		&mockTool{name: "slow", delay: 30 * time.Millisecond, result: "slow"},
		&mockTool{name: "fast", result: "fast"},
	}

	var (
		mu       sync.Mutex
		observed []string
	)
	exec := NewParallelFunctionExecutor(FunctionExecutorConfig{
		PreserveOrder: true,
		Observer: func(name string, _ time.Duration, _ error) {
			mu.Lock()
			defer mu.Unlock()
			observed = append(observed, name)
		},
	})

	var events []core.Event
	err := exec.Execute(rc, "agent", tools, []core.FunctionCall{
		{ID: "1", Name: "slow"},
		{ID: "2", Name: "fast"},
	}, func(ev core.Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "1", events[0].GetFunctionResponses()[0].ID)
	assert.Equal(t, "slow", events[0].GetFunctionResponses()[0].Response)
	assert.Equal(t, "2", events[1].GetFunctionResponses()[0].ID)
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"slow", "fast"}, observed)
}

func TestParallelFunctionExecutor_ErrorsBecomeResponses(t *testing.T) {
	rc, _ := newTestRunContext(context.Background(), "hi")

	tools := []tool.Tool{
		&mockTool{name: "boom", panicMsg: "kaboom"},
		&mockTool{name: "fails", err: errors.New("down")},
		&mockTool{name: "state", result: "ok", state: map[string]any{"k": "v"}},
	}

	var events []core.Event
	err := NewParallelFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true}).Execute(rc, "agent", tools, []core.FunctionCall{
		{ID: "a", Name: "boom"},
		{ID: "b", Name: "fails"},
		{ID: "c", Name: "missing"},
		{ID: "d", Name: "state", Arguments: "{}"},
		{ID: "e", Name: "state", Arguments: "{not json"},
	}, func(ev core.Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 5)

	assert.Contains(t, events[0].GetFunctionResponses()[0].Error, "panic recovered")
	assert.Equal(t, "down", events[1].GetFunctionResponses()[0].Error)
	assert.Contains(t, events[2].GetFunctionResponses()[0].Error, "not found")
	assert.Equal(t, "v", events[3].Actions.StateDelta["k"])
	assert.Contains(t, events[4].GetFunctionResponses()[0].Error, "failed to unmarshal args")
}

func TestParallelFunctionExecutor_SingleCall(t *testing.T) {
	rc, _ := newTestRunContext(context.Background(), "hi")

	var got core.Event
	err := NewParallelFunctionExecutor(FunctionExecutorConfig{}).Execute(rc, "agent",
		[]tool.Tool{&mockTool{name: "one", result: 1}},
		[]core.FunctionCall{{ID: "x", Name: "one"}},
		func(ev core.Event) error { got = ev; return nil },
	)
	require.NoError(t, err)
	assert.Equal(t, "run", got.InvocationID)
	assert.Equal(t, 1, got.GetFunctionResponses()[0].Response)
}

func TestParallelFunctionExecutor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc, _ := newTestRunContext(ctx, "hi")

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := NewParallelFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true}).Execute(rc, "agent",
		[]tool.Tool{&mockTool{name: "slow", delay: time.Second}},
		[]core.FunctionCall{{ID: "1", Name: "slow"}, {ID: "2", Name: "slow"}},
		func(core.Event) error { return nil },
	)
	assert.ErrorIs(t, err, context.Canceled)
}
