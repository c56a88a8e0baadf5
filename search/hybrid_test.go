package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	results []Result
	err     error
	calls   int
	mu      sync.Mutex
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, _ Request) ([]Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.results, f.err
}

type recordingObserver struct {
	mu        sync.Mutex
	providers map[string]error
	merged    int
}

func (o *recordingObserver) ObserveProvider(p string, _ time.Duration, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.providers == nil {
		o.providers = map[string]error{}
	}
	o.providers[p] = err
}

func (o *recordingObserver) ObserveMerged(n int) { o.merged = n }

func r(url, published, source string) Result {
	return Result{Title: url, URL: url, PublishedAt: published, Source: source}
}

func TestMerge(t *testing.T) {
	in := []Result{
		r("https://www.a.com/news/", DefaultDate, "Tavily"),
		r("https://a.com/news#top", "2025-03-01", "SerpAPI"),
		r("", "2025-03-01", "Tavily"),
		r(DefaultURL, "2025-03-01", "Tavily"),
		r("https://old.com", "2023-01-01", "SerpAPI"),
		r("https://b.com", "Aug 2, 2025", "SerpAPI"),
		r("https://c.com", "", "Tavily"),
	}

	out := Merge(in, "2025", 0)
	require.Len(t, out, 3)

	// Dated first, stable within groups; the duplicate keeps its first (undated) copy
	assert.Equal(t, "https://b.com", out[0].URL)
	assert.Equal(t, "https://www.a.com/news/", out[1].URL)
	assert.Equal(t, "https://c.com", out[2].URL)
	assert.Equal(t, DefaultDate, out[2].PublishedAt)
}

func TestMerge_Limit(t *testing.T) {
	var in []Result
	for _, u := range []string{"https://1.com", "https://2.com", "https://3.com", "https://4.com", "https://5.com", "https://6.com"} {
		in = append(in, r(u, "2025-01-02", "x"))
	}
	assert.Len(t, Merge(in, "2025", 5), 5)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://WWW.Example.com/a/", "https://example.com/a"},
		{"HTTPS://example.com/a#frag", "https://example.com/a"},
		{"https://example.com/a?x=1", "https://example.com/a?x=1"},
		{"  https://example.com  ", "https://example.com"},
		{"not a url/", "not a url"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestHybrid_MergesAcrossProviders(t *testing.T) {
	tavily := &fakeProvider{name: "Tavily", results: []Result{r("https://a.com", "2025-05-01", "Tavily")}}
	serp := &fakeProvider{name: "SerpAPI", results: []Result{r("https://a.com/", "2025-05-02", "SerpAPI"), r("https://b.com", DefaultDate, "SerpAPI")}}

	obs := &recordingObserver{}
	h := NewHybrid([]Provider{tavily, serp}, func(o *HybridOptions) {
		o.Now = fixedNow
		o.Observer = obs
	})

	assert.Equal(t, []string{"Tavily", "SerpAPI"}, h.Providers())

	out, err := h.Search(context.Background(), "ai")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Tavily", out[0].Source)
	assert.Equal(t, "https://b.com", out[1].URL)
	assert.Equal(t, 2, obs.merged)
	assert.Len(t, obs.providers, 2)
}

func TestHybrid_ToleratesProviderFailure(t *testing.T) {
	tavily := &fakeProvider{name: "Tavily", err: errors.New("401")}
	serp := &fakeProvider{name: "SerpAPI", results: []Result{r("https://b.com", "2025-01-01", "SerpAPI")}}

	out, err := NewHybrid([]Provider{tavily, serp}, func(o *HybridOptions) { o.Now = fixedNow }).Search(context.Background(), "ai")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "SerpAPI", out[0].Source)
}

func TestHybrid_AllFail(t *testing.T) {
	h := NewHybrid([]Provider{
		&fakeProvider{name: "Tavily", err: errors.New("down")},
		&fakeProvider{name: "SerpAPI", err: errors.New("down")},
	})

	out, err := h.Search(context.Background(), "ai")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHybrid_NoProviders(t *testing.T) {
	_, err := NewHybrid(nil).Search(context.Background(), "ai")
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestHybrid_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHybrid([]Provider{&fakeProvider{name: "Tavily"}}).Search(ctx, "ai")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHybrid_Cache(t *testing.T) {
	now := fixedNow()
	clock := func() time.Time { return now }

	p := &fakeProvider{name: "Tavily", results: []Result{r("https://a.com", "2025-01-01", "Tavily")}}
	h := NewHybrid([]Provider{p}, func(o *HybridOptions) {
		o.Now = clock
		o.CacheTTL = time.Minute
	})

	_, err := h.Search(context.Background(), "AI ")
	require.NoError(t, err)
	_, err = h.Search(context.Background(), "ai")
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)

	now = now.Add(2 * time.Minute)
	_, err = h.Search(context.Background(), "ai")
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := NewCache(time.Minute, nil)
	c.Set("k", []Result{{Title: "a"}})

	got, ok := c.Get("k")
	require.True(t, ok)
	got[0].Title = "mutated"

	again, _ := c.Get("k")
	assert.Equal(t, "a", again[0].Title)
	assert.Equal(t, 1, c.Len())
}
