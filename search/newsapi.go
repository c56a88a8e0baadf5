package search

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

// NewsAPIBaseURL is the default NewsAPI endpoint.
const NewsAPIBaseURL = "https://newsapi.org"

// NewsAPI searches news articles through newsapi.org, newest first.
type NewsAPI struct {
	client
	apiKey string
}

// NewNewsAPI creates a NewsAPI provider.
func NewNewsAPI(apiKey string, optFns ...func(o *ClientOptions)) *NewsAPI {
	opts := defaultClientOptions(NewsAPIBaseURL)
	for _, fn := range optFns {
		fn(&opts)
	}

	return &NewsAPI{client: newClient("NewsAPI", opts), apiKey: apiKey}
}

// Name implements Provider.
func (n *NewsAPI) Name() string { return "NewsAPI" }

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search implements Provider. Articles are attributed to their publisher.
func (n *NewsAPI) Search(ctx context.Context, req Request) ([]Result, error) {
	if n.apiKey == "" {
		return nil, &ProviderError{Provider: n.Name(), Err: errors.New("missing api key")}
	}

	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(maxResults(req)))
	q.Set("language", "en")
	q.Set("from", n.since(req).Format("2006-01-02"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint("/v2/everything")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Api-Key", n.apiKey)

	var resp newsResponse
	if err := n.doJSON(ctx, httpReq, &resp); err != nil {
		return nil, err
	}

	if resp.Status == "error" {
		return nil, &ProviderError{Provider: n.Name(), Err: errors.New(resp.Message)}
	}

	results := make([]Result, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		results = append(results, Result{
			Title:       orDefault(a.Title, DefaultTitle),
			Description: orDefault(a.Description, DefaultDescription),
			URL:         orDefault(a.URL, DefaultURL),
			PublishedAt: orDefault(a.PublishedAt, DefaultDate),
			Source:      orDefault(a.Source.Name, "NewsAPI"),
			Icon:        "📰",
		})
	}

	return results, nil
}
