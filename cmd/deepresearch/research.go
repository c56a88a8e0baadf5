package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/hupe1980/deepresearch/config"
	"github.com/hupe1980/deepresearch/logging"
	"github.com/hupe1980/deepresearch/metrics"
	"github.com/hupe1980/deepresearch/model"
	"github.com/hupe1980/deepresearch/model/anthropic"
	"github.com/hupe1980/deepresearch/model/openai"
	"github.com/hupe1980/deepresearch/report"
	"github.com/hupe1980/deepresearch/research"
	"github.com/hupe1980/deepresearch/search"
	"github.com/hupe1980/deepresearch/store"
	"github.com/hupe1980/deepresearch/tool"
)

// DefaultQuery is researched when no query is given.
const DefaultQuery = "Give me updates in the world of tech?"

// NewResearchCmd creates the research command.
func NewResearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research [query]",
		Short: "Research a query and print a report",
		Long: `Research plans, searches and reports on a query.

The planning agent drafts up to five steps, the web search agent queries
Tavily and SerpAPI concurrently and keeps results from the current year, and
the reporting agent writes a Markdown report with citations. Every stage
falls back to a safe default when the model returns nothing usable.

Examples:
  # Research the default query
  deepresearch research

  # Research a custom query with Groq
  deepresearch research --provider groq "Latest developments in AI chips"

  # Write a Markdown report to a file
  deepresearch research --markdown -o report.md "EU AI Act status"

Environment:
  GEMINI_API_KEY, GROQ_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY
  TAVILY_API_KEY, SERP_API_KEY, NEWS_API_ORG`,
		Args: cobra.ArbitraryArgs,
		RunE: runResearchCmd,
	}

	// Model flags
	cmd.Flags().StringP("provider", "P", "",
		"Model provider: gemini, groq, openai or anthropic")
	cmd.Flags().StringP("model", "M", "", "Model name (default: provider preset)")
	cmd.Flags().Int("max-model-calls", 0, "Maximum model calls per research run")

	// Search flags
	cmd.Flags().IntP("max-results", "n", 0, "Maximum number of sources")
	cmd.Flags().DurationP("timeout", "t", 0, "Timeout for each search request")
	cmd.Flags().Bool("provider-tools", false,
		"Also offer single provider search tools to the search agent")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .deepresearch.yaml or XDG config dir)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-stream", false, "Do not print streamed model output")

	// History and metrics flags
	cmd.Flags().Bool("no-store", false, "Do not record the run in the history database")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address while running (e.g., :9090)")

	cmd.MarkFlagsMutuallyExclusive("json", "markdown")

	return cmd
}

// runResearchCmd executes the research command.
func runResearchCmd(cmd *cobra.Command, args []string) error {
	cfg, metricsAddr, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		query = DefaultQuery
	}

	logger := setupLogger(cfg, getVerboseFlag(cmd), cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runResearch(ctx, cmd, cfg, metricsAddr, query, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig loads the configuration and applies the flags that were set.
func buildConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}

	if err := applyFlags(cmd, &cfg); err != nil {
		return config.Config{}, "", err
	}

	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return config.Config{}, "", err
	}

	return cfg, metricsAddr, nil
}

// applyFlags overrides cfg with the flags the user changed.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("provider") {
		v, err := flags.GetString("provider")
		if err != nil {
			return err
		}
		cfg.Model.Provider = config.Provider(strings.ToLower(v))
	}

	if flags.Changed("model") {
		v, err := flags.GetString("model")
		if err != nil {
			return err
		}
		cfg.Model.Name = v
	}

	if flags.Changed("max-model-calls") {
		v, err := flags.GetInt("max-model-calls")
		if err != nil {
			return err
		}
		cfg.Model.MaxModelCalls = v
	}

	if flags.Changed("max-results") {
		v, err := flags.GetInt("max-results")
		if err != nil {
			return err
		}
		cfg.Search.MaxResults = v
	}

	if flags.Changed("timeout") {
		v, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Search.Timeout = v
	}

	if flags.Changed("provider-tools") {
		v, err := flags.GetBool("provider-tools")
		if err != nil {
			return err
		}
		cfg.Search.ProviderTools = v
	}

	jsonOut, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOut && markdownOut {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	switch {
	case jsonOut:
		cfg.Output.Format = config.FormatJSON
	case markdownOut:
		cfg.Output.Format = config.FormatMarkdown
	}

	if flags.Changed("output") {
		v, err := flags.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output.Path = v
	}

	if noStream, err := flags.GetBool("no-stream"); err != nil {
		return err
	} else if noStream {
		cfg.Output.Stream = false
	}

	if noStore, err := flags.GetBool("no-store"); err != nil {
		return err
	} else if noStore {
		cfg.Store.Enabled = false
	}

	return nil
}

// setupLogger creates the diagnostics logger. Logs go to stderr so they
// never mix with the report.
func setupLogger(cfg config.Config, verbose bool, w io.Writer) logging.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logging.LogLevelWarn
	}
	if verbose {
		level = logging.LogLevelDebug
	}

	return logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    w,
		Component: "cli",
	})
}

// runResearch wires the model, search providers, store and metrics and runs
// the pipeline for query.
func runResearch(ctx context.Context, cmd *cobra.Command, cfg config.Config, metricsAddr, query string, logger logging.Logger) error {
	collector := metrics.NewCollector(metrics.DefaultNamespace)
	if metricsAddr != "" {
		srv := metrics.NewServer(metricsAddr, collector, logger)
		srv.Start(ctx)
		defer srv.Shutdown()
	}

	llm, err := newModel(cfg)
	if err != nil {
		return err
	}

	hybrid, extra := newSearch(cfg, collector, logger)

	var recorder research.RunRecorder
	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Dir, store.DefaultOptions())
		if err != nil {
			logger.Warn("cli.store.unavailable", "dir", cfg.Store.Dir, "error", err.Error())
		} else {
			defer func() { _ = st.Close() }()
			recorder = st
		}
	}

	// Progress goes to stdout for the text format and to stderr otherwise so
	// that machine readable reports stay clean.
	progressOut := cmd.OutOrStdout()
	if cfg.Output.Format != config.FormatText || cfg.Output.Path != "" {
		progressOut = cmd.ErrOrStderr()
	}
	printer := newConsolePrinter(progressOut, cfg.Output.Stream)

	orch, err := research.New(llm, hybrid, func(o *research.Options) {
		o.Streaming = cfg.Output.Stream
		o.Temperature = cfg.Model.Temperature
		o.ExtraSearchTools = extra
		o.MaxModelCalls = cfg.Model.MaxModelCalls
		o.Progress = printer.Handle
		o.Recorder = recorder
		o.StageObserver = collector
		o.ToolObserver = collector.ObserveTool
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(progressOut, "\nProcessing Query: %s\n", query)

	start := time.Now()

	res, err := orch.Run(ctx, query)
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	logger.Info("cli.research.completed", "id", res.ID, "duration", time.Since(start).String(), "fallbacks", len(res.Fallbacks))

	// The text printer has already shown every stage.
	if cfg.Output.Format == config.FormatText && cfg.Output.Path == "" {
		return nil
	}

	return writeResult(cmd.OutOrStdout(), cfg.Output, res)
}

// newModel creates the chat model for the configured provider.
func newModel(cfg config.Config) (model.Model, error) {
	m, err := cfg.ResolveModel()
	if err != nil {
		return nil, err
	}

	if m.Anthropic {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(m.Name)
			o.APIKey = m.APIKey
			o.BaseURL = m.BaseURL
			if cfg.Model.Temperature != nil {
				o.Temperature = *cfg.Model.Temperature
			}
		}), nil
	}

	return openai.NewModel(func(o *openai.Options) {
		o.Model = m.Name
		o.APIKey = m.APIKey
		o.BaseURL = m.BaseURL
		if cfg.Model.Temperature != nil {
			o.Temperature = *cfg.Model.Temperature
		}
	}), nil
}

// newSearch creates the hybrid searcher over Tavily and SerpAPI plus the
// single provider tools offered next to it.
func newSearch(cfg config.Config, collector *metrics.Collector, logger logging.Logger) (*search.Hybrid, []tool.Tool) {
	clientOpts := func(o *search.ClientOptions) {
		o.Timeout = cfg.Search.Timeout
		o.RequestsPerSecond = cfg.Search.RequestsPerSecond
		o.Logger = logger
	}

	var (
		providers []search.Provider
		extra     []tool.Tool
	)

	if cfg.Keys.Tavily != "" {
		tavily := search.NewTavily(cfg.Keys.Tavily, clientOpts)
		providers = append(providers, tavily)
		if cfg.Search.ProviderTools {
			extra = append(extra, research.NewTavilyTool(tavily, cfg.Search.MaxResults))
		}
	}

	if cfg.Keys.Serp != "" {
		serp := search.NewSerpAPI(cfg.Keys.Serp, clientOpts)
		providers = append(providers, serp)
		if cfg.Search.ProviderTools {
			extra = append(extra, research.NewSerpTool(serp, cfg.Search.MaxResults))
		}
	}

	if cfg.Keys.News != "" {
		extra = append(extra, research.NewNewsTool(search.NewNewsAPI(cfg.Keys.News, clientOpts), cfg.Search.MaxResults))
	}

	hybrid := search.NewHybrid(providers, func(o *search.HybridOptions) {
		o.Limit = cfg.Search.MaxResults
		o.CacheTTL = cfg.Search.CacheTTL
		o.Logger = logger
		o.Observer = collector
	})

	return hybrid, extra
}

// writeResult renders res in the configured format to stdout or the output file.
func writeResult(stdout io.Writer, out config.OutputConfig, res *research.Result) error {
	w := stdout

	if out.Path != "" {
		if dir := filepath.Dir(out.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.Create(out.Path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()

		w = f
	}

	if _, err := newWriter(out.Format, w).Write(res); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if out.Path != "" {
		fmt.Fprintf(stdout, "Report written to %s\n", out.Path)
	}

	return nil
}

func newWriter(format string, w io.Writer) report.Writer {
	switch format {
	case config.FormatJSON:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case config.FormatMarkdown:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewTextWriter(w)
	}
}
