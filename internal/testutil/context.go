package testutil

import (
	"context"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
)

// NewRunContext returns a run context over a fresh session holding a single
// user message. Emitted events are buffered on the returned channel.
func NewRunContext(ctx context.Context, input string) (*core.RunContext, chan core.Event) {
	return NewSessionRunContext(ctx, NewSessionBuilder("test-session").Query("test-run", input).Build())
}

// NewSessionRunContext returns a run context over sess. The user content is
// the text of the last user event in sess.
func NewSessionRunContext(ctx context.Context, sess *core.Session) (*core.RunContext, chan core.Event) {
	emit := make(chan core.Event, 64)

	user := core.NewTextContent("user", "")
	runID := "test-run"
	for _, ev := range sess.GetEvents() {
		if ev.Author == "user" && ev.Content != nil {
			user = *ev.Content
			runID = ev.InvocationID
		}
	}

	rc := core.NewRunContext(ctx, sess.ID, runID, core.AgentInfo{Name: "test", Type: "test"},
		user, 0, emit, sess, nil, logging.NoOpLogger{})

	return rc, emit
}

// NewToolContext returns a tool context for direct tool calls in tests.
func NewToolContext(ctx context.Context) *core.ToolContext {
	rc, _ := NewRunContext(ctx, "")
	return core.NewToolContext(rc, "call-1")
}
