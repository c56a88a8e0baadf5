package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/hupe1980/deepresearch/logging"
)

// RunContext carries execution state & helpers for an agent run.
// It encapsulates the mutable, per-run execution scope passed to an
// Agent's Run method. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, RunID, Agent info)
//   - Input user Content
//   - The emission channel consumed by the runner
//   - The session snapshot + store and pending StateDelta to commit
//   - A shared model call limiter
//   - Branch label for hierarchical flows
//
// State mutations performed via SetState accumulate in StateDelta until
// CommitStateDelta or EmitEvent applies them.
type RunContext struct {
	Context          context.Context
	SessionID, RunID string
	Agent            AgentInfo
	UserContent      Content
	Emit             chan<- Event
	SessionStore     SessionStore
	Limiter          *ModelLimiter
	Session          *Session
	StateDelta       map[string]any
	Branch           string

	*runLogger
}

// NewRunContext constructs a RunContext with an empty state delta.
func NewRunContext(
	ctx context.Context,
	sessionID, runID string,
	agent AgentInfo,
	userContent Content,
	maxModelCalls int,
	emit chan<- Event,
	sess *Session,
	sessionStore SessionStore,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		SessionID:     sessionID,
		RunID:         runID,
		Agent:         agent,
		UserContent:   userContent,
		Emit:          emit,
		Session:       sess,
		SessionStore:  sessionStore,
		Limiter:       NewModelLimiter(maxModelCalls),
		StateDelta:    map[string]any{},
		runLogger:     newRunLogger(logger, "run_id", runID, "session_id", sessionID),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// GetState returns a staged (delta) value if present, else the persisted session value.
func (rc *RunContext) GetState(k string) (any, bool) {
	if v, ok := rc.StateDelta[k]; ok {
		return v, true
	}

	if rc.Session != nil {
		return rc.Session.GetState(k)
	}

	return nil, false
}

// SetState stages a state mutation in the in-memory delta buffer.
func (rc *RunContext) SetState(k string, v any) { rc.StateDelta[k] = v }

// ApplyStateDelta merges all pairs from d into the staged StateDelta.
func (rc *RunContext) ApplyStateDelta(d map[string]any) {
	maps.Copy(rc.StateDelta, d)
}

// State returns the merged view of persisted session state and staged delta.
func (rc *RunContext) State() map[string]any {
	state := map[string]any{}
	if rc.Session != nil {
		state = rc.Session.StateSnapshot()
	}
	maps.Copy(state, rc.StateDelta)
	return state
}

// RefreshSession reloads the session snapshot from the SessionStore.
func (rc *RunContext) RefreshSession() error {
	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	s, err := rc.SessionStore.Get(rc.SessionID)
	if err != nil {
		return err
	}

	rc.Session = s

	return nil
}

// CommitStateDelta persists the accumulated StateDelta then clears the buffer.
func (rc *RunContext) CommitStateDelta() error {
	if len(rc.StateDelta) == 0 {
		return nil
	}

	if rc.SessionStore == nil {
		return fmt.Errorf("session store not configured")
	}

	if err := rc.SessionStore.ApplyDelta(rc.SessionID, rc.StateDelta); err != nil {
		return err
	}

	rc.StateDelta = map[string]any{}

	return nil
}

// GetSessionHistory returns the conversation history of the session snapshot.
func (rc *RunContext) GetSessionHistory() []Event {
	if rc.Session == nil {
		return []Event{}
	}

	return rc.Session.GetConversationHistory()
}

// GetAgentName returns the logical agent name for this run.
func (rc *RunContext) GetAgentName() string { return rc.Agent.Name }

// Clone returns a shallow copy with a deep-copied delta buffer.
func (rc *RunContext) Clone() *RunContext {
	c := *rc
	c.StateDelta = maps.Clone(rc.StateDelta)
	if c.StateDelta == nil {
		c.StateDelta = map[string]any{}
	}
	return &c
}

// WithAgent clones the context and rebinds it to another agent.
func (rc *RunContext) WithAgent(info AgentInfo) *RunContext {
	c := rc.Clone()
	c.Agent = info
	return c
}

// WithBranch clones the context and sets the Branch label.
func (rc *RunContext) WithBranch(b string) *RunContext {
	c := rc.Clone()
	c.Branch = b
	return c
}

// NewChildContext derives an isolated context for a nested execution (agent
// used as a tool). The child gets its own session seeded with the given user
// content, its own emit channel and a fresh delta, but shares the cancellation
// context, limiter and logger.
func (rc *RunContext) NewChildContext(agent AgentInfo, userContent Content, emit chan<- Event) *RunContext {
	sess := NewSession(rc.SessionID + "/" + agent.Name)
	sess.AddEvent(NewUserContentEvent(rc.RunID, &userContent))

	branch := agent.Name
	if rc.Branch != "" {
		branch = rc.Branch + "." + agent.Name
	}

	return &RunContext{
		Context:       rc.Context,
		SessionID:     sess.ID,
		RunID:         rc.RunID,
		Agent:         agent,
		UserContent:   userContent,
		Emit:          emit,
		Limiter:       rc.Limiter,
		Session:       sess,
		StateDelta:    map[string]any{},
		Branch:        branch,
		runLogger:     rc.runLogger,
	}
}

// EmitEvent emits ev on the run's channel. Non-partial events carry the
// pending StateDelta and are appended to the local session snapshot so that
// subsequent model turns observe them without a store round trip. Partial
// events leave the delta staged.
func (rc *RunContext) EmitEvent(ev Event) error {
	if ev.InvocationID == "" {
		ev.InvocationID = rc.RunID
	}

	if rc.Branch != "" && ev.Branch == nil {
		b := rc.Branch
		ev.Branch = &b
	}

	partial := ev.IsPartial()

	if !partial && len(rc.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		maps.Copy(ev.Actions.StateDelta, rc.StateDelta)
	}

	if rc.Emit != nil {
		if err := rc.Context.Err(); err != nil {
			return err
		}
		select {
		case <-rc.Context.Done():
			return rc.Context.Err()
		case rc.Emit <- ev:
		}
	}

	if partial {
		return nil
	}

	if rc.Session != nil {
		if len(ev.Actions.StateDelta) > 0 {
			rc.Session.ApplyStateDelta(ev.Actions.StateDelta)
		}
		rc.Session.AddEvent(ev)
	}

	rc.StateDelta = map[string]any{}

	return nil
}
