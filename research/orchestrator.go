package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/deepresearch/agent"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/flow"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/runner"
	"github.com/hupe1980/deepresearch/search"
	"github.com/hupe1980/deepresearch/session"
	"github.com/hupe1980/deepresearch/store"
	"github.com/hupe1980/deepresearch/tool"
)

var (
	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("research: query must not be empty")
	// ErrStageOrder is returned when a stage runs before its predecessor.
	ErrStageOrder = errors.New("research: stage requires the previous stage to complete")
)

// RunRecorder persists finished runs. *store.SQLiteStore implements it.
type RunRecorder interface {
	Save(ctx context.Context, run store.Run) error
}

// Options configures an Orchestrator.
type Options struct {
	// Now returns the current time. It decides the year results are
	// prioritized for.
	Now func() time.Time
	// Streaming forwards partial model output as StageDelta events.
	Streaming   bool
	Temperature *float64
	// ExtraSearchTools are offered to the web search agent next to the
	// hybrid search tool.
	ExtraSearchTools []tool.Tool
	// MaxModelCalls caps the model calls of one pipeline run across all
	// stages (0 = unlimited). A stage that hits the cap falls back.
	MaxModelCalls int

	Progress      ProgressFunc
	Recorder      RunRecorder
	StageObserver StageObserver
	ToolObserver  flow.ToolObserver
	Logger        logging.Logger
}

// Result is the outcome of a pipeline run.
type Result struct {
	ID         string          `json:"id"`
	Query      string          `json:"query"`
	Plan       Plan            `json:"plan"`
	Sources    []search.Result `json:"sources"`
	Report     *Report         `json:"report"`
	Fallbacks  []Stage         `json:"fallbacks,omitempty"`
	ModelCalls int             `json:"model_calls"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// UsedFallback reports whether stage degraded to its fallback.
func (r *Result) UsedFallback(stage Stage) bool {
	for _, s := range r.Fallbacks {
		if s == stage {
			return true
		}
	}
	return false
}

// Orchestrator runs research pipelines. It is safe for concurrent use; each
// Run gets its own sessions.
type Orchestrator struct {
	opts     Options
	year     int
	searcher Searcher
	root     *agent.ModelAgent
	sessions *session.InMemoryStore
	runner   *runner.Runner
}

// New builds the agent tree over llm and searcher.
func New(llm model.Model, searcher Searcher, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		Now:           time.Now,
		Streaming:     true,
		MaxModelCalls: 50,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if llm == nil {
		return nil, errors.New("research: model is required")
	}
	if searcher == nil {
		return nil, errors.New("research: searcher is required")
	}

	year := opts.Now().Year()

	agentOpts := func(o *AgentOptions) {
		o.Year = year
		o.Streaming = opts.Streaming
		o.Temperature = opts.Temperature
		o.ToolObserver = opts.ToolObserver
	}

	root, err := NewOrchestratorAgent(llm,
		NewPlanningAgent(llm, agentOpts),
		NewWebSearchAgent(llm, searcher, opts.ExtraSearchTools, agentOpts),
		NewReportingAgent(llm, agentOpts),
		agentOpts,
	)
	if err != nil {
		return nil, err
	}

	sessions := session.NewInMemoryStore()

	return &Orchestrator{
		opts:     opts,
		year:     year,
		searcher: searcher,
		root:     root,
		sessions: sessions,
		runner: runner.New(root, func(o *runner.Options) {
			o.SessionStore = sessions
			o.MaxModelCalls = opts.MaxModelCalls
			o.Logger = opts.Logger
		}),
	}, nil
}

// Agent returns the root orchestrator agent.
func (o *Orchestrator) Agent() *agent.ModelAgent { return o.root }

// Year returns the year results are prioritized for.
func (o *Orchestrator) Year() int { return o.year }

// Run executes plan, search and report for query. Stage failures degrade to
// fallbacks; only context cancellation ends the run with an error. The
// partial result is returned alongside that error.
func (o *Orchestrator) Run(ctx context.Context, query string) (*Result, error) {
	p, err := o.NewPipeline(query)
	if err != nil {
		return nil, err
	}

	runErr := p.runAll(ctx)
	res := p.Result()

	o.record(ctx, res, runErr)

	return res, runErr
}

func (o *Orchestrator) record(ctx context.Context, res *Result, runErr error) {
	if o.opts.Recorder == nil {
		return
	}

	run := store.Run{
		ID:         res.ID,
		Query:      res.Query,
		Plan:       res.Plan.Texts(),
		Sources:    res.Sources,
		Status:     store.StatusCompleted,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}

	if res.Report != nil {
		run.Report = res.Report.Markdown
	}

	for _, s := range res.Fallbacks {
		run.Fallbacks = append(run.Fallbacks, string(s))
	}

	if runErr != nil {
		run.Status = store.StatusFailed
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			run.Status = store.StatusCancelled
		}
		run.Error = runErr.Error()
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := o.opts.Recorder.Save(saveCtx, run); err != nil {
		o.opts.Logger.Warn("research.record.failed", "run_id", res.ID, "error", err.Error())
	}
}

// Pipeline runs the stages of a single query. Each stage executes at most
// once; calling it again returns the stored output. A Pipeline is not safe
// for concurrent use.
type Pipeline struct {
	o       *Orchestrator
	id      string
	query   string
	tracker *StepTracker
	limiter *core.ModelLimiter

	plan      Plan
	sources   []search.Result
	report    *Report
	fallbacks []Stage

	startedAt  time.Time
	finishedAt time.Time
}

// NewPipeline starts a pipeline for query.
func (o *Orchestrator) NewPipeline(query string) (*Pipeline, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	return &Pipeline{
		o:         o,
		id:        core.NewID(),
		query:     query,
		tracker:   NewStepTracker(),
		limiter:   core.NewModelLimiter(o.opts.MaxModelCalls),
		startedAt: o.opts.Now(),
	}, nil
}

// Query returns the trimmed query.
func (p *Pipeline) Query() string { return p.query }

// Completed returns the finished stages in order.
func (p *Pipeline) Completed() []Stage { return p.tracker.Completed() }

func (p *Pipeline) runAll(ctx context.Context) error {
	defer func() { p.finishedAt = p.o.opts.Now() }()

	if _, err := p.Plan(ctx); err != nil {
		return err
	}
	if _, err := p.Search(ctx); err != nil {
		return err
	}
	if _, err := p.Report(ctx); err != nil {
		return err
	}

	return nil
}

// Result returns a snapshot of the pipeline state.
func (p *Pipeline) Result() *Result {
	finished := p.finishedAt
	if finished.IsZero() {
		finished = p.o.opts.Now()
	}

	return &Result{
		ID:         p.id,
		Query:      p.query,
		Plan:       p.plan,
		Sources:    append([]search.Result(nil), p.sources...),
		Report:     p.report,
		Fallbacks:  append([]Stage(nil), p.fallbacks...),
		ModelCalls: p.limiter.Count(),
		StartedAt:  p.startedAt,
		FinishedAt: finished,
	}
}

// Plan runs the planning stage.
func (p *Pipeline) Plan(ctx context.Context) (Plan, error) {
	if p.tracker.Done(StagePlan) {
		return p.plan, nil
	}

	start := p.begin(StagePlan)

	out, err := p.o.runStage(core.WithModelLimiter(ctx, p.limiter), StagePlan, planInput(p.query))
	if ctxErr := ctx.Err(); ctxErr != nil {
		p.abort(StagePlan, start, ctxErr)
		return Plan{}, ctxErr
	}

	var plan Plan
	for _, c := range out.candidates() {
		if plan = ParsePlan(c); !plan.Empty() {
			break
		}
	}

	fallback := plan.Empty()
	if fallback {
		plan = FallbackPlan(p.query, p.o.year)
		p.fallback(StagePlan, err, true)
	}

	p.plan = plan
	p.complete(StagePlan, start, fallback)

	return plan, nil
}

// Search runs the search stage. The plan stage must have completed.
func (p *Pipeline) Search(ctx context.Context) ([]search.Result, error) {
	if p.tracker.Done(StageSearch) {
		return p.sources, nil
	}
	if !p.tracker.Done(StagePlan) {
		return nil, fmt.Errorf("%w: %s before %s", ErrStageOrder, StageSearch, StagePlan)
	}

	start := p.begin(StageSearch)

	out, err := p.o.runStage(core.WithModelLimiter(ctx, p.limiter), StageSearch, searchInput(p.query, p.plan))
	if ctxErr := ctx.Err(); ctxErr != nil {
		p.abort(StageSearch, start, ctxErr)
		return nil, ctxErr
	}

	var results []search.Result
	for _, c := range out.candidates() {
		if results = ParseResults(c); len(results) > 0 {
			break
		}
	}

	fallback := len(results) == 0
	if fallback {
		cause := err

		direct, serr := p.o.searcher.Search(ctx, p.query)
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.abort(StageSearch, start, ctxErr)
			return nil, ctxErr
		}
		if serr != nil {
			cause = errors.Join(cause, serr)
		}

		results = direct
		placeholder := len(results) == 0
		if placeholder {
			results = []search.Result{FallbackResult(p.query)}
		}

		p.fallback(StageSearch, cause, placeholder)
	}

	p.sources = results
	p.complete(StageSearch, start, fallback)

	return results, nil
}

// Report runs the reporting stage. The search stage must have completed.
func (p *Pipeline) Report(ctx context.Context) (*Report, error) {
	if p.tracker.Done(StageReport) {
		return p.report, nil
	}
	if !p.tracker.Done(StageSearch) {
		return nil, fmt.Errorf("%w: %s before %s", ErrStageOrder, StageReport, StageSearch)
	}

	start := p.begin(StageReport)

	payload, err := json.MarshalIndent(p.sources, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode search results: %w", err)
	}

	out, err := p.o.runStage(core.WithModelLimiter(ctx, p.limiter), StageReport, reportInput(p.query, string(payload)))
	if ctxErr := ctx.Err(); ctxErr != nil {
		p.abort(StageReport, start, ctxErr)
		return nil, ctxErr
	}

	var report *Report
	for _, c := range out.candidates() {
		if r := NewReport(p.query, c, p.sources); r.Valid() {
			report = r
			break
		}
	}

	fallback := report == nil
	if fallback {
		report = FallbackReport(p.query, p.o.year, err)
		p.fallback(StageReport, err, true)
	}

	p.report = report
	p.complete(StageReport, start, fallback)

	return report, nil
}

func (p *Pipeline) begin(stage Stage) time.Time {
	p.o.opts.Logger.Info("research.stage.started", "run_id", p.id, "stage", string(stage))
	p.o.emit(ProgressEvent{Stage: stage, Kind: StageStarted})
	return time.Now()
}

func (p *Pipeline) fallback(stage Stage, cause error, placeholder bool) {
	p.fallbacks = append(p.fallbacks, stage)

	args := []any{"run_id", p.id, "stage", string(stage), "placeholder", placeholder}
	if cause != nil {
		args = append(args, "error", cause.Error())
	}
	p.o.opts.Logger.Warn("research.stage.fallback", args...)

	if errors.Is(cause, core.ErrModelCallLimit) {
		p.o.opts.Logger.Warn("research.stage.call_limit", "run_id", p.id, "stage", string(stage),
			"model_calls", p.limiter.Count(), "max_model_calls", p.limiter.Max())
	}

	p.o.emit(ProgressEvent{Stage: stage, Kind: StageFallback, Err: cause, Placeholder: placeholder})
}

func (p *Pipeline) complete(stage Stage, start time.Time, fallback bool) {
	p.tracker.MarkDone(stage)

	elapsed := time.Since(start)
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}

	p.o.opts.Logger.Info("research.stage.completed", "run_id", p.id, "stage", string(stage),
		"outcome", outcome, "duration_ms", elapsed.Milliseconds())
	p.o.observe(stage, outcome, elapsed)
	p.o.emit(ProgressEvent{Stage: stage, Kind: StageCompleted, Elapsed: elapsed, Result: p.Result()})
}

func (p *Pipeline) abort(stage Stage, start time.Time, err error) {
	p.o.opts.Logger.Warn("research.stage.aborted", "run_id", p.id, "stage", string(stage), "error", err.Error())
	p.o.observe(stage, "error", time.Since(start))
}

func (o *Orchestrator) emit(ev ProgressEvent) {
	if o.opts.Progress != nil {
		o.opts.Progress(ev)
	}
}

func (o *Orchestrator) observe(stage Stage, outcome string, d time.Duration) {
	if o.opts.StageObserver != nil {
		o.opts.StageObserver.ObserveStage(string(stage), outcome, d)
	}
}

var stageTools = map[Stage]string{
	StagePlan:   PlanToolName,
	StageSearch: SearchToolName,
	StageReport: ReportToolName,
}

// stageOutput holds what a stage run produced: the stage tool's response
// and the final text of the run.
type stageOutput struct {
	tool  string
	final string
}

// candidates lists non-empty outputs, the specialist's own output first.
func (s stageOutput) candidates() []string {
	var out []string
	for _, c := range []string{s.tool, s.final} {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}

// runStage runs the orchestrator agent on input in a fresh session.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, input string) (stageOutput, error) {
	sessionID := core.NewID()
	defer o.sessions.Delete(sessionID)

	_, events, errs, err := o.runner.Run(ctx, sessionID, core.NewTextContent("user", input))
	if err != nil {
		return stageOutput{}, err
	}

	toolName := stageTools[stage]

	var out stageOutput

	for ev := range events {
		switch {
		case ev.IsPartial():
			if text := ev.Text(); text != "" {
				o.emit(ProgressEvent{Stage: stage, Kind: StageDelta, Agent: ev.Author, Text: text})
			}
		case ev.IsError():
			o.opts.Logger.Warn("research.stage.agent_error", "stage", string(stage), "agent", ev.Author, "error", *ev.ErrorMessage)
		default:
			for _, fr := range ev.GetFunctionResponses() {
				o.emit(ProgressEvent{Stage: stage, Kind: ToolExecuted, Agent: ev.Author, Tool: fr.Name})
				if fr.Name == toolName && fr.Error == "" {
					out.tool = model.ResponseText(fr)
				}
			}

			if ev.Author != "user" && ev.IsFinalResponse() {
				if text := strings.TrimSpace(ev.Text()); text != "" {
					out.final = text
				}
			}
		}
	}

	if err := <-errs; err != nil {
		return out, err
	}

	return out, nil
}
