// Package research wires agents, tools and search providers into the deep
// research pipeline.
//
// A query runs through three stages, each at most once:
//
//	plan   -> a numbered list of research steps
//	search -> web results gathered by a hybrid search over several providers
//	report -> a short Markdown report with citations
//
// Every stage is driven by the orchestrator agent, which delegates to a
// specialist agent exposed as a tool (plan_research, search_web and
// generate_report). Empty or failed stage output never aborts a run: the stage
// degrades to a deterministic fallback and the run continues. Only context
// cancellation stops a pipeline early.
//
// Progress is reported through a ProgressFunc and finished runs can be
// recorded with a RunRecorder such as store.SQLiteStore.
package research
