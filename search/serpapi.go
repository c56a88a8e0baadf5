package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// SerpAPIBaseURL is the default SerpAPI endpoint.
const SerpAPIBaseURL = "https://serpapi.com"

// SerpAPI searches Google organic results through SerpAPI, restricted to
// the past month.
type SerpAPI struct {
	client
	apiKey string
}

// NewSerpAPI creates a SerpAPI provider.
func NewSerpAPI(apiKey string, optFns ...func(o *ClientOptions)) *SerpAPI {
	opts := defaultClientOptions(SerpAPIBaseURL)
	for _, fn := range optFns {
		fn(&opts)
	}

	return &SerpAPI{client: newClient("SerpAPI", opts), apiKey: apiKey}
}

// Name implements Provider.
func (s *SerpAPI) Name() string { return "SerpAPI" }

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
		Date    string `json:"date"`
	} `json:"organic_results"`
}

// Search implements Provider.
func (s *SerpAPI) Search(ctx context.Context, req Request) ([]Result, error) {
	if s.apiKey == "" {
		return nil, &ProviderError{Provider: s.Name(), Err: errors.New("missing api key")}
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s %d", req.Query, s.year()))
	q.Set("api_key", s.apiKey)
	q.Set("num", strconv.Itoa(maxResults(req)))
	q.Set("tbs", "qdr:m")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("/search.json")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp serpResponse
	if err := s.doJSON(ctx, httpReq, &resp); err != nil {
		return nil, err
	}

	if resp.Error != "" && len(resp.OrganicResults) == 0 {
		return nil, &ProviderError{Provider: s.Name(), Err: errors.New(resp.Error)}
	}

	if len(resp.OrganicResults) == 0 {
		s.opts.Logger.Warn("search.provider.empty", "provider", s.Name(), "query", req.Query)
	}

	results := make([]Result, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		results = append(results, Result{
			Title:       orDefault(r.Title, DefaultTitle),
			Description: orDefault(r.Snippet, DefaultDescription),
			URL:         orDefault(r.Link, DefaultURL),
			PublishedAt: orDefault(r.Date, DefaultDate),
			Source:      "SerpAPI",
			Icon:        "🌐",
		})
	}

	return results, nil
}
