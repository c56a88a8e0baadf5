package research

import "fmt"

// Agent and tool names.
const (
	PlanningAgentName     = "PlanningAgent"
	WebSearchAgentName    = "WebSearchAgent"
	ReportingAgentName    = "ReportingAgent"
	OrchestratorAgentName = "OrchestratorAgent"

	PlanToolName   = "plan_research"
	SearchToolName = "search_web"
	ReportToolName = "generate_report"
)

// PlanningInstructions returns the planning agent's system prompt.
func PlanningInstructions(year int) string {
	return fmt.Sprintf(`You are a research planner. Create a concise research plan for the user's query.

Rules:
- Output 4-5 numbered steps, one per line, formatted as "1. step".
- Each step is a single actionable sentence.
- Prioritize developments and sources from %d.
- Output only the numbered list, no introduction or summary.`, year)
}

// WebSearchInstructions returns the web search agent's system prompt.
func WebSearchInstructions(year int) string {
	return fmt.Sprintf(`You are a web research agent. You receive a research plan and the original query.

Rules:
- Always call the fetch_web_data_hybrid tool with a focused search query derived from the plan and the query.
- Prefer results published in %d.
- Respond ONLY with a JSON list of objects with the keys "title", "description", "url", "published_at", "source" and "icon".
- Copy values from the tool results; never invent URLs.
- If the tool returns no results, respond with [].`, year)
}

// ReportingInstructions returns the reporting agent's system prompt.
func ReportingInstructions(year int) string {
	return fmt.Sprintf(`You are a research writer. Write a Markdown report from the search results you are given.

Rules:
- 150-200 words.
- Use exactly these sections: "## Introduction", "## Key Findings" (3-5 bullet points), "## Analysis", "## Conclusion" and "## Citations".
- Under Citations list every source you used as "- [title](url)".
- Focus on developments from %d.
- Use only the provided results. If they are empty, say that no reliable sources were found.`, year)
}

// OrchestratorInstructions returns the orchestrator agent's system prompt.
func OrchestratorInstructions() string {
	return `You coordinate a deep research pipeline with three tools:
- plan_research: generate a concise research plan for a query.
- search_web: search the web based on a plan and query.
- generate_report: synthesize search results into a Markdown report.

Call exactly the one tool that matches the request, passing the full request as input, and then return the tool output unchanged.
Never repeat a step that has already been completed.`
}

func planInput(query string) string {
	return "Generate a research plan for: " + query
}

func searchInput(query string, plan Plan) string {
	return fmt.Sprintf("Search the web based on this plan:\n%s\nOriginal query: %s", plan.String(), query)
}

func reportInput(query string, resultsJSON string) string {
	return fmt.Sprintf("Generate a report for query '%s' using these results:\n%s", query, resultsJSON)
}
