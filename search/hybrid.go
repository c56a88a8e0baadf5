package search

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/deepresearch/logging"
)

// DefaultLimit is the number of results Hybrid returns by default.
const DefaultLimit = 5

// Observer receives hybrid search measurements.
type Observer interface {
	ObserveProvider(provider string, duration time.Duration, results int, err error)
	ObserveMerged(results int)
}

// HybridOptions configures Hybrid.
type HybridOptions struct {
	// Limit caps the merged result list. Defaults to DefaultLimit.
	Limit int
	// PerProvider is the MaxResults sent to each provider. Defaults to Limit.
	PerProvider int
	// CacheTTL enables caching of merged results per query when positive.
	CacheTTL time.Duration
	// Now returns the current time; used for the year filter.
	Now      func() time.Time
	Logger   logging.Logger
	Observer Observer
}

// Hybrid queries several providers concurrently and merges their results.
type Hybrid struct {
	providers []Provider
	opts      HybridOptions
	cache     *Cache
}

// NewHybrid creates a hybrid searcher over providers. Provider order decides
// which duplicate wins.
func NewHybrid(providers []Provider, optFns ...func(o *HybridOptions)) *Hybrid {
	opts := HybridOptions{
		Limit:  DefaultLimit,
		Now:    time.Now,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.PerProvider <= 0 {
		opts.PerProvider = opts.Limit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	h := &Hybrid{providers: providers, opts: opts}
	if opts.CacheTTL > 0 {
		h.cache = NewCache(opts.CacheTTL, opts.Now)
	}

	return h
}

// Providers returns the configured provider names.
func (h *Hybrid) Providers() []string {
	names := make([]string, len(h.providers))
	for i, p := range h.providers {
		names[i] = p.Name()
	}
	return names
}

// Search runs query against all providers. Provider failures are logged and
// skipped; when every provider fails the result is empty, not an error.
// Only context cancellation and a missing provider list are reported.
func (h *Hybrid) Search(ctx context.Context, query string) ([]Result, error) {
	if len(h.providers) == 0 {
		return nil, ErrNoProviders
	}

	key := strings.ToLower(strings.TrimSpace(query))
	if h.cache != nil {
		if cached, ok := h.cache.Get(key); ok {
			h.opts.Logger.Debug("search.hybrid.cache_hit", "query", query)
			return cached, nil
		}
	}

	perProvider := make([][]Result, len(h.providers))

	var (
		mu     sync.Mutex
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)

	for i, p := range h.providers {
		g.Go(func() error {
			start := time.Now()
			results, err := p.Search(gctx, Request{Query: query, MaxResults: h.opts.PerProvider})
			dur := time.Since(start)

			if h.opts.Observer != nil {
				h.opts.Observer.ObserveProvider(p.Name(), dur, len(results), err)
			}

			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				h.opts.Logger.Warn("search.provider.failed", "provider", p.Name(), "error", err.Error())
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			h.opts.Logger.Debug("search.provider.results", "provider", p.Name(), "count", len(results))
			perProvider[i] = results

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Result
	for _, rs := range perProvider {
		all = append(all, rs...)
	}

	merged := Merge(all, strconv.Itoa(h.opts.Now().Year()), h.opts.Limit)

	if h.opts.Observer != nil {
		h.opts.Observer.ObserveMerged(len(merged))
	}

	if len(merged) == 0 {
		h.opts.Logger.Warn("search.hybrid.empty", "query", query, "failed_providers", failed)
	}

	if h.cache != nil && len(merged) > 0 {
		h.cache.Set(key, merged)
	}

	return merged, nil
}

// Merge drops results without a usable URL, deduplicates by normalized URL
// (first occurrence wins), keeps results published in year or undated,
// orders dated results before undated ones (stable) and truncates to limit.
// A limit <= 0 keeps everything.
func Merge(results []Result, year string, limit int) []Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]Result, 0, len(results))

	for _, r := range results {
		if r.URL == "" || r.URL == DefaultURL {
			continue
		}

		key := NormalizeURL(r.URL)
		if _, dup := seen[key]; dup {
			continue
		}

		published := orDefault(r.PublishedAt, DefaultDate)
		if published != DefaultDate && !strings.Contains(published, year) {
			continue
		}

		r.PublishedAt = published
		seen[key] = struct{}{}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Dated() && !out[j].Dated()
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}
