package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/deepresearch/search"
)

// StubProvider is a search.Provider returning canned results.
type StubProvider struct {
	ProviderName string
	Results      []search.Result
	Err          error

	mu       sync.Mutex
	requests []search.Request
}

// Name implements search.Provider.
func (p *StubProvider) Name() string {
	if p.ProviderName == "" {
		return "stub"
	}
	return p.ProviderName
}

// Search implements search.Provider.
func (p *StubProvider) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}

	return append([]search.Result(nil), p.Results...), nil
}

// Requests returns the requests received so far.
func (p *StubProvider) Requests() []search.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]search.Request(nil), p.requests...)
}

// StubSearcher answers merged searches with canned results.
type StubSearcher struct {
	Results []search.Result
	Err     error

	mu      sync.Mutex
	queries []string
}

// Search returns the canned results and records query.
func (s *StubSearcher) Search(ctx context.Context, query string) ([]search.Result, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}

	return append([]search.Result(nil), s.Results...), nil
}

// Queries returns the queries received so far.
func (s *StubSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}
