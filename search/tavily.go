package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// TavilyBaseURL is the default Tavily API endpoint.
const TavilyBaseURL = "https://api.tavily.com"

// Tavily searches the web through the Tavily search API.
type Tavily struct {
	client
	apiKey string
}

// NewTavily creates a Tavily provider.
func NewTavily(apiKey string, optFns ...func(o *ClientOptions)) *Tavily {
	opts := defaultClientOptions(TavilyBaseURL)
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Tavily{client: newClient("Tavily", opts), apiKey: apiKey}
}

// Name implements Provider.
func (t *Tavily) Name() string { return "Tavily" }

type tavilyRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
	StartDate   string `json:"start_date"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		Content       string `json:"content"`
		URL           string `json:"url"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

// Search implements Provider. The current year is appended to the query.
func (t *Tavily) Search(ctx context.Context, req Request) ([]Result, error) {
	if t.apiKey == "" {
		return nil, &ProviderError{Provider: t.Name(), Err: errors.New("missing api key")}
	}

	body, err := json.Marshal(tavilyRequest{
		Query:       fmt.Sprintf("%s %d", req.Query, t.year()),
		MaxResults:  maxResults(req),
		SearchDepth: "advanced",
		StartDate:   t.since(req).Format("2006-01-02"),
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("/search"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	var resp tavilyResponse
	if err := t.doJSON(ctx, httpReq, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		t.opts.Logger.Warn("search.provider.empty", "provider", t.Name(), "query", req.Query)
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{
			Title:       orDefault(r.Title, DefaultTitle),
			Description: orDefault(r.Content, DefaultDescription),
			URL:         orDefault(r.URL, DefaultURL),
			PublishedAt: orDefault(r.PublishedDate, DefaultDate),
			Source:      "Tavily",
			Icon:        "📝",
		})
	}

	return results, nil
}
