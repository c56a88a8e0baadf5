// Package search queries external web search providers and merges their
// results.
//
// Three providers are available: Tavily, SerpAPI and NewsAPI. Hybrid fans a
// query out to several providers concurrently, tolerates individual provider
// failures and returns a deduplicated, recency filtered result list.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Placeholder values for fields a provider did not return.
const (
	DefaultTitle       = "Untitled"
	DefaultDescription = "No description"
	DefaultURL         = "No URL"
	DefaultDate        = "No date"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 15 * time.Second

// ErrNoProviders is returned by Hybrid when no provider is configured.
var ErrNoProviders = errors.New("search: no providers configured")

// Result is a single search hit. The JSON shape is also what research agents
// are asked to return.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Source      string `json:"source"`
	Icon        string `json:"icon"`
}

// Dated reports whether the result carries a publication date.
func (r Result) Dated() bool {
	return r.PublishedAt != "" && r.PublishedAt != DefaultDate
}

// Request describes a provider query.
type Request struct {
	Query      string
	MaxResults int
	// Since restricts results to those published after it. The zero value
	// means the start of the current year.
	Since time.Time
}

// Provider is a web search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, req Request) ([]Result, error)
}

// ProviderError reports a failed provider request.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func startOfYear(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
