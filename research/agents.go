package research

import (
	"fmt"
	"time"

	"github.com/hupe1980/deepresearch/agent"
	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/flow"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/tool"
)

// Stage tool descriptions, shared by the specialist agents and the
// orchestrator tools wrapping them.
const (
	planDescription   = "Generate a concise research plan for a query."
	searchDescription = "Search the web based on a plan and query, returning a JSON list of results."
	reportDescription = "Synthesize search results into a concise markdown report."
)

// AgentOptions configures the research agents.
type AgentOptions struct {
	// Year is the year results should be prioritized for. Defaults to the
	// current year.
	Year int
	// Streaming enables partial text events.
	Streaming bool
	// Temperature overrides the model default when set.
	Temperature *float64
	// ToolObserver is notified after each tool call.
	ToolObserver flow.ToolObserver
}

func agentOptions(optFns []func(o *AgentOptions)) AgentOptions {
	opts := AgentOptions{Year: time.Now().Year(), Streaming: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Year == 0 {
		opts.Year = time.Now().Year()
	}
	return opts
}

// NewPlanningAgent creates the agent that turns a query into numbered steps.
func NewPlanningAgent(llm model.Model, optFns ...func(o *AgentOptions)) *agent.ModelAgent {
	opts := agentOptions(optFns)

	return agent.NewModelAgent(PlanningAgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = planDescription
		o.Instruction = agent.NewInstructionFromText(PlanningInstructions(opts.Year))
		o.Settings = model.Settings{MaxTokens: 1000, Temperature: opts.Temperature}
		o.EnableStreaming = opts.Streaming
		o.AllowTransfer = false
	})
}

// NewWebSearchAgent creates the agent that searches the web. The hybrid
// search tool is always registered; extra tools are appended after it.
func NewWebSearchAgent(llm model.Model, searcher Searcher, extra []tool.Tool, optFns ...func(o *AgentOptions)) *agent.ModelAgent {
	opts := agentOptions(optFns)

	tools := append([]tool.Tool{NewHybridTool(searcher)}, extra...)

	return agent.NewModelAgent(WebSearchAgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = searchDescription
		o.Instruction = agent.NewInstructionFromText(WebSearchInstructions(opts.Year))
		o.Tools = tools
		o.Settings = model.Settings{MaxTokens: 1500, Temperature: opts.Temperature, ToolChoice: model.ToolChoiceRequired}
		o.EnableStreaming = opts.Streaming
		o.AllowTransfer = false
		o.ToolObserver = opts.ToolObserver
	})
}

// NewReportingAgent creates the agent that writes the Markdown report.
func NewReportingAgent(llm model.Model, optFns ...func(o *AgentOptions)) *agent.ModelAgent {
	opts := agentOptions(optFns)

	return agent.NewModelAgent(ReportingAgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = reportDescription
		o.Instruction = agent.NewInstructionFromText(ReportingInstructions(opts.Year))
		o.Settings = model.Settings{MaxTokens: 2000, Temperature: opts.Temperature}
		o.EnableStreaming = opts.Streaming
		o.AllowTransfer = false
	})
}

// NewOrchestratorAgent creates the triage agent. Each specialist is exposed
// as a tool and is also reachable through transfer_to_agent.
func NewOrchestratorAgent(llm model.Model, planner, searcher, reporter core.Agent, optFns ...func(o *AgentOptions)) (*agent.ModelAgent, error) {
	opts := agentOptions(optFns)

	tools := []tool.Tool{
		tool.NewAgentTool(planner, func(o *tool.AgentToolOptions) {
			o.Name = PlanToolName
			o.Description = planDescription
		}),
		tool.NewAgentTool(searcher, func(o *tool.AgentToolOptions) {
			o.Name = SearchToolName
			o.Description = searchDescription
		}),
		tool.NewAgentTool(reporter, func(o *tool.AgentToolOptions) {
			o.Name = ReportToolName
			o.Description = reportDescription
		}),
	}

	orchestrator := agent.NewModelAgent(OrchestratorAgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = "Coordinates planning, web search and reporting for a research query."
		o.Instruction = agent.NewInstructionFromText(OrchestratorInstructions())
		o.Tools = tools
		o.Settings = model.Settings{MaxTokens: 3000, Temperature: opts.Temperature, ToolChoice: model.ToolChoiceAuto}
		o.EnableStreaming = opts.Streaming
		o.AllowTransfer = true
		o.ToolObserver = opts.ToolObserver
	})

	if err := orchestrator.SetSubAgents(planner, searcher, reporter); err != nil {
		return nil, fmt.Errorf("failed to register specialists: %w", err)
	}

	return orchestrator, nil
}
