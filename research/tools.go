package research

import (
	"context"
	"strings"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/search"
	"github.com/hupe1980/deepresearch/tool"
)

// Search tool names.
const (
	TavilyToolName = "fetch_web_data"
	SerpToolName   = "fetch_web_data_serp"
	NewsToolName   = "fetch_news"
	HybridToolName = "fetch_web_data_hybrid"
)

// Messages returned to the model when a provider tool fails.
const (
	TavilyUnavailable = "Tavily web search unavailable. Falling back to other sources..."
	NewsUnavailable   = "The news service is temporarily unavailable. Please try again later."
)

// Searcher runs a merged web search. *search.Hybrid implements it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

type searchArgs struct {
	Query string `json:"query" description:"The search query"`
}

func queryArg(args map[string]any) (string, error) {
	q, _ := args["query"].(string)
	q = strings.TrimSpace(q)
	if q == "" {
		return "", tool.NewToolError("search", "field 'query' must be a non-empty string", tool.CodeValidation)
	}
	return q, nil
}

func providerTool(name, description string, p search.Provider, maxResults int, failure tool.FailureFunc) *tool.FunctionTool {
	fn := func(tc *core.ToolContext, args map[string]any) (any, error) {
		q, err := queryArg(args)
		if err != nil {
			return nil, err
		}

		results, err := p.Search(tc.Context(), search.Request{Query: q, MaxResults: maxResults})
		if err != nil {
			return nil, err
		}

		tc.Logger().Debug("research.tool.results", "tool", name, "provider", p.Name(), "results", len(results))

		return nonNilResults(results), nil
	}

	return tool.NewFunctionToolFromStruct(name, description, searchArgs{}, fn, func(o *tool.FunctionToolOptions) {
		o.FailureFunc = failure
	})
}

// NewTavilyTool exposes a Tavily provider as fetch_web_data. Provider
// failures are reported to the model as an error message instead of failing
// the run.
func NewTavilyTool(p search.Provider, maxResults int) *tool.FunctionTool {
	return providerTool(TavilyToolName,
		"Search the web with Tavily for recent results. Returns a JSON list of results.",
		p, maxResults, tool.StaticFailure(TavilyUnavailable))
}

// NewSerpTool exposes a SerpAPI provider as fetch_web_data_serp. Failures
// yield an empty result list.
func NewSerpTool(p search.Provider, maxResults int) *tool.FunctionTool {
	return providerTool(SerpToolName,
		"Search Google via SerpAPI for results from the last month. Returns a JSON list of results.",
		p, maxResults, func(*core.ToolContext, error) any { return []search.Result{} })
}

// NewNewsTool exposes a NewsAPI provider as fetch_news.
func NewNewsTool(p search.Provider, maxResults int) *tool.FunctionTool {
	return providerTool(NewsToolName,
		"Fetch recent news articles for a topic. Returns a JSON list of results.",
		p, maxResults, tool.StaticFailure(NewsUnavailable))
}

// NewHybridTool exposes a merged multi-provider search as fetch_web_data_hybrid.
func NewHybridTool(s Searcher) *tool.FunctionTool {
	fn := func(tc *core.ToolContext, args map[string]any) (any, error) {
		q, err := queryArg(args)
		if err != nil {
			return nil, err
		}

		results, err := s.Search(tc.Context(), q)
		if err != nil {
			return nil, err
		}

		return nonNilResults(results), nil
	}

	return tool.NewFunctionToolFromStruct(HybridToolName,
		"Search several web search providers at once and return deduplicated, recent results as a JSON list.",
		searchArgs{}, fn)
}

func nonNilResults(r []search.Result) []search.Result {
	if r == nil {
		return []search.Result{}
	}
	return r
}
