package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_ConstructorsAndMethods(t *testing.T) {
	e := NewEvent("inv-123", "authorA")
	assert.Equal(t, "authorA", e.Author)
	assert.Equal(t, "inv-123", e.InvocationID)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	msg := NewMessageEvent("agent1", "hello world")
	require.NotNil(t, msg.Content)
	assert.Equal(t, "assistant", msg.Content.Role)
	assert.Equal(t, "hello world", msg.Text())

	user := NewUserMessageEvent("inv-1", "hi")
	require.NotNil(t, user.Content)
	assert.Equal(t, "user", user.Content.Role)
	assert.Equal(t, "user", user.Author)

	fCall := NewFunctionCallEvent("agent2", "do_stuff", `{"a":1}`)
	calls := fCall.GetFunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "do_stuff", calls[0].Name)
	assert.Equal(t, `{"a":1}`, calls[0].Arguments)

	resps := NewFunctionResponseEvent("agent2", "call-1", "do_stuff", 42, nil).GetFunctionResponses()
	require.Len(t, resps, 1)
	assert.Equal(t, 42, resps[0].Response)
	assert.Empty(t, resps[0].Error)

	resps = NewFunctionResponseEvent("agent2", "call-2", "do_stuff", nil, errors.New("boom")).GetFunctionResponses()
	assert.Equal(t, "boom", resps[0].Error)

	errEv := NewErrorEvent("inv", "agent", "MODEL_ERROR", errors.New("down"))
	assert.True(t, errEv.IsError())
	assert.Equal(t, "MODEL_ERROR", *errEv.ErrorCode)
}

func TestEvent_IsFinalResponseLogic(t *testing.T) {
	assert.True(t, NewEvent("inv", "authorA").IsFinalResponse())

	partial := true
	e2 := NewEvent("inv", "agent")
	e2.Partial = &partial
	assert.False(t, e2.IsFinalResponse())

	assert.False(t, NewFunctionCallEvent("agent", "f", "").IsFinalResponse())
	assert.False(t, NewFunctionResponseEvent("agent", "call-3", "f", "ok", nil).IsFinalResponse())

	skip := true
	e5 := NewEvent("inv", "agent")
	e5.Partial = &partial
	e5.Actions.SkipSummarization = &skip
	assert.True(t, e5.IsFinalResponse())
}

func TestEvent_IDUniqueness(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}

func TestContent_Text(t *testing.T) {
	c := Content{Role: "assistant", Parts: []Part{
		TextPart{Text: "a"},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "f"}},
		TextPart{Text: "b"},
	}}
	assert.Equal(t, "ab", c.Text())
}

func TestModelLimiter(t *testing.T) {
	l := NewModelLimiter(2)
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	require.ErrorIs(t, err, ErrModelCallLimit)
	assert.Contains(t, err.Error(), "2 calls allowed")
	assert.Equal(t, 2, l.Count(), "rejected calls are not counted")

	assert.Equal(t, -1, NewModelLimiter(0).Remaining())
}

func TestModelLimiter_SharedThroughContext(t *testing.T) {
	_, ok := ModelLimiterFromContext(context.Background())
	assert.False(t, ok)

	l := NewModelLimiter(3)
	ctx := WithModelLimiter(context.Background(), l)

	got, ok := ModelLimiterFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, l, got)
	assert.Equal(t, 3, got.Max())
}
