package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deepresearch/search"
)

var _ search.Observer = (*Collector)(nil)

func TestCollector_ObserveProvider(t *testing.T) {
	c := NewCollector("")

	c.ObserveProvider("Tavily", 200*time.Millisecond, 3, nil)
	c.ObserveProvider("Tavily", 100*time.Millisecond, 0, errors.New("HTTP 500"))
	c.ObserveProvider("SerpAPI", time.Second, 0, context.DeadlineExceeded)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchRequests.WithLabelValues("Tavily", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchRequests.WithLabelValues("Tavily", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchRequests.WithLabelValues("SerpAPI", "canceled")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.searchDuration))
}

func TestCollector_ObserveMerged(t *testing.T) {
	c := NewCollector("")

	c.ObserveMerged(7)
	c.ObserveMerged(4)

	assert.Equal(t, 4.0, testutil.ToFloat64(c.searchResults))
}

func TestCollector_StagesAndTools(t *testing.T) {
	c := NewCollector("test")

	c.ObserveStage("plan", "ok", time.Second)
	c.ObserveStage("search", "fallback", time.Second)
	c.ObserveStage("search", "fallback", time.Second)
	c.ObserveTool("fetch_web_data_hybrid", 50*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.stageOutcomes.WithLabelValues("search", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolCalls.WithLabelValues("fetch_web_data_hybrid", "ok")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("")
	c.ObserveTool("plan_research", time.Millisecond, nil)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `deepresearch_tool_calls_total{outcome="ok",tool="plan_research"} 1`))
}
