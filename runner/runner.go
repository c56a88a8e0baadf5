package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/session"
)

// ErrRunnerBusy is returned when MaxConcurrentRuns runs are already active.
var ErrRunnerBusy = errors.New("runner: too many concurrent runs")

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns limits concurrent agent runs (0 = unlimited).
	MaxConcurrentRuns int
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run (0 = unlimited).
	MaxModelCalls int
	// SessionStore persists history and state.
	SessionStore core.SessionStore
	// Logger receives runner diagnostics.
	Logger logging.Logger
}

// Runner coordinates agent execution: creates run contexts, streams events,
// applies state deltas and persists history. Public methods are safe for
// concurrent use.
type Runner struct {
	agent core.Agent

	eventBufferSize int
	maxModelCalls   int
	slots           chan struct{}

	sessionStore core.SessionStore
	logger       logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   50,
		SessionStore:    session.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Runner{
		agent:           agent,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		sessionStore:    opts.SessionStore,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}

	if opts.MaxConcurrentRuns > 0 {
		r.slots = make(chan struct{}, opts.MaxConcurrentRuns)
	}

	return r
}

// Run starts an asynchronous run of the root agent. The events channel is
// closed when the run finishes; the errors channel yields at most one error
// and is closed afterwards.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	if r.slots != nil {
		select {
		case r.slots <- struct{}{}:
		default:
			return "", nil, nil, ErrRunnerBusy
		}
	}

	release := func() {
		if r.slots != nil {
			<-r.slots
		}
	}

	runID := core.NewID()

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		release()
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	sess, err := r.sessionStore.Get(sessionID)
	if err != nil {
		release()
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	agentErr := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	runCtx := core.NewRunContext(
		ctx,
		sessionID,
		runID,
		core.AgentInfo{Name: r.agent.Name(), Type: "root"},
		userContent,
		r.maxModelCalls,
		agentEmit,
		sess,
		r.sessionStore,
		r.logger,
	)

	if l, ok := core.ModelLimiterFromContext(ctx); ok {
		runCtx.Limiter = l
	}

	r.logger.Debug("runner.run.start", "run_id", runID, "session_id", sessionID, "agent", r.agent.Name())

	go func() {
		defer close(agentEmit)
		agentErr <- r.agent.Run(runCtx)
	}()

	go func() {
		defer func() {
			close(eventsCh)
			close(errorsCh)
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			cancel()
			release()
		}()

		procErr := r.processEvents(runCtx, sessionID, agentEmit, eventsCh, cancel)

		if err := <-agentErr; err != nil {
			r.logger.Warn("runner.run.failed", "run_id", runID, "error", err.Error())
			errorsCh <- fmt.Errorf("agent execution failed: %w", err)
			return
		}

		if procErr != nil {
			errorsCh <- procErr
			return
		}

		// An agent may finish its last emit after cancellation.
		if err := runCtx.Err(); err != nil {
			r.logger.Debug("runner.run.cancelled", "run_id", runID)
			errorsCh <- fmt.Errorf("agent execution failed: %w", err)
			return
		}

		r.logger.Debug("runner.run.complete", "run_id", runID)
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync runs the root agent to completion and returns the final text
// answer. Events are discarded.
func (r *Runner) RunSync(ctx context.Context, sessionID, input string) (string, error) {
	_, events, errs, err := r.Run(ctx, sessionID, core.NewTextContent("user", input))
	if err != nil {
		return "", err
	}

	var final string
	for ev := range events {
		if ev.Author == "user" || ev.IsError() || !ev.IsFinalResponse() {
			continue
		}
		if text := strings.TrimSpace(ev.Text()); text != "" {
			final = text
		}
	}

	if err := <-errs; err != nil {
		return final, err
	}

	return final, nil
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	cancel, exists := r.activeRuns[runID]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// ActiveRuns returns the number of runs in flight.
func (r *Runner) ActiveRuns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeRuns)
}

// processEvents persists and forwards agent events until the agent closes
// its channel. After a persistence failure or cancellation the remaining
// events are drained so the agent goroutine can finish.
func (r *Runner) processEvents(
	runCtx *core.RunContext,
	sessionID string,
	agentEmit <-chan core.Event,
	eventsCh chan<- core.Event,
	cancel context.CancelFunc,
) error {
	var procErr error

	for ev := range agentEmit {
		if procErr != nil || runCtx.Err() != nil {
			continue
		}

		if !ev.IsPartial() {
			if err := r.persist(sessionID, ev); err != nil {
				procErr = err
				cancel()
				continue
			}
		}

		select {
		case <-runCtx.Done():
		case eventsCh <- ev:
		}
	}

	return procErr
}

func (r *Runner) persist(sessionID string, ev core.Event) error {
	if len(ev.Actions.StateDelta) > 0 {
		if err := r.sessionStore.ApplyDelta(sessionID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}
	}

	if ev.Actions.TransferToAgent != nil && *ev.Actions.TransferToAgent != "" {
		r.logger.Debug("runner.event.transfer_to_agent", "target", *ev.Actions.TransferToAgent, "session_id", sessionID)
	}

	if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
		return fmt.Errorf("failed to append event to session: %w", err)
	}

	return nil
}
