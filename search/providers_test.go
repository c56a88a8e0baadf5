package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, time.August, 20, 10, 0, 0, 0, time.UTC) }

func testOpts(srv *httptest.Server) func(o *ClientOptions) {
	return func(o *ClientOptions) {
		o.BaseURL = srv.URL
		o.Now = fixedNow
	}
}

func TestTavily_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ai chips 2025", body["query"])
		assert.Equal(t, "advanced", body["search_depth"])
		assert.Equal(t, "2025-01-01", body["start_date"])
		assert.EqualValues(t, 3, body["max_results"])

		_, _ = w.Write([]byte(`{"results":[
			{"title":"Chips","content":"New chips","url":"https://a.com/x","published_date":"2025-08-01"},
			{"url":""}
		]}`))
	}))
	defer srv.Close()

	results, err := NewTavily("tvly-test", testOpts(srv)).Search(context.Background(), Request{Query: "ai chips", MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, Result{Title: "Chips", Description: "New chips", URL: "https://a.com/x", PublishedAt: "2025-08-01", Source: "Tavily", Icon: "📝"}, results[0])
	assert.Equal(t, Result{Title: DefaultTitle, Description: DefaultDescription, URL: DefaultURL, PublishedAt: DefaultDate, Source: "Tavily", Icon: "📝"}, results[1])
}

func TestTavily_MissingKey(t *testing.T) {
	_, err := NewTavily("").Search(context.Background(), Request{Query: "x"})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Tavily", pe.Provider)
}

func TestSerpAPI_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "ai chips 2025", q.Get("q"))
		assert.Equal(t, "serp-key", q.Get("api_key"))
		assert.Equal(t, "5", q.Get("num"))
		assert.Equal(t, "qdr:m", q.Get("tbs"))

		_, _ = w.Write([]byte(`{"organic_results":[{"title":"T","snippet":"S","link":"https://b.com","date":"Aug 2, 2025"}]}`))
	}))
	defer srv.Close()

	results, err := NewSerpAPI("serp-key", testOpts(srv)).Search(context.Background(), Request{Query: "ai chips"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Result{Title: "T", Description: "S", URL: "https://b.com", PublishedAt: "Aug 2, 2025", Source: "SerpAPI", Icon: "🌐"}, results[0])
}

func TestSerpAPI_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Invalid API key."}`))
	}))
	defer srv.Close()

	_, err := NewSerpAPI("bad", testOpts(srv)).Search(context.Background(), Request{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key.")
}

func TestNewsAPI_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "news-key", r.Header.Get("X-Api-Key"))
		q := r.URL.Query()
		assert.Equal(t, "meta ai", q.Get("q"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "2025-07-01", q.Get("from"))

		_, _ = w.Write([]byte(`{"status":"ok","articles":[{"source":{"name":"The Verge"},"title":"Meta","description":"D","url":"https://v.com/a","publishedAt":"2025-08-22T10:00:00Z"}]}`))
	}))
	defer srv.Close()

	since := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	results, err := NewNewsAPI("news-key", testOpts(srv)).Search(context.Background(), Request{Query: "meta ai", Since: since})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Verge", results[0].Source)
	assert.Equal(t, "📰", results[0].Icon)
}

func TestProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewNewsAPI("k", testOpts(srv)).Search(context.Background(), Request{Query: "x"})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Contains(t, pe.Error(), "quota exceeded")
}

func TestProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewTavily("tvly-x", testOpts(srv), func(o *ClientOptions) { o.Timeout = 20 * time.Millisecond }).
		Search(context.Background(), Request{Query: "x"})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Zero(t, pe.StatusCode)
}

func TestProvider_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	p := NewTavily("tvly-x", testOpts(srv), func(o *ClientOptions) { o.RequestsPerSecond = 0.001 })

	_, err := p.Search(context.Background(), Request{Query: "first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = p.Search(ctx, Request{Query: "second"})
	require.Error(t, err)
}
