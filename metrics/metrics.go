// Package metrics exposes Prometheus metrics for research runs: search
// provider calls, pipeline stages and tool executions.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/deepresearch/logging"
)

// DefaultNamespace prefixes all metric names.
const DefaultNamespace = "deepresearch"

// Collector records research metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	searchRequests *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	searchResults  prometheus.Gauge

	stageOutcomes *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

// NewCollector creates a collector. An empty namespace uses DefaultNamespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		searchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total number of search provider requests",
			},
			[]string{"provider", "outcome"},
		),
		searchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_request_duration_seconds",
				Help:      "Search provider request duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"provider"},
		),
		searchResults: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "search_merged_results",
				Help:      "Number of results left after the last hybrid merge",
			},
		),
		stageOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_stages_total",
				Help:      "Pipeline stage executions by outcome (ok, fallback, error)",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Tool executions by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveProvider records one provider request.
func (c *Collector) ObserveProvider(provider string, duration time.Duration, _ int, err error) {
	c.searchRequests.WithLabelValues(provider, outcome(err)).Inc()
	c.searchDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveMerged records the size of a merged hybrid result list.
func (c *Collector) ObserveMerged(results int) {
	c.searchResults.Set(float64(results))
}

// ObserveStage records a finished pipeline stage.
func (c *Collector) ObserveStage(stage string, result string, duration time.Duration) {
	c.stageOutcomes.WithLabelValues(stage, result).Inc()
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveTool records a tool execution. Its signature matches flow.ToolObserver.
func (c *Collector) ObserveTool(toolName string, duration time.Duration, err error) {
	c.toolCalls.WithLabelValues(toolName, outcome(err)).Inc()
	c.toolDuration.WithLabelValues(toolName).Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Server serves /metrics until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, c *Collector, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background. The server shuts down when ctx is done.
func (s *Server) Start(ctx context.Context) {
	go func() {
		s.logger.Info("metrics.server.start", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics.server.failed", "addr", s.srv.Addr, "error", err.Error())
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
}

// Shutdown stops the server, waiting up to five seconds for open requests.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics.server.shutdown_failed", "error", err.Error())
	}
}
