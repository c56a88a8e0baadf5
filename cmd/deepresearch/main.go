// Package main provides the deepresearch CLI.
//
// deepresearch turns a question into a research plan, searches the web with
// Tavily and SerpAPI, and writes a short Markdown report with citations.
//
// Usage:
//
//	deepresearch research "What happened in AI chips this year?"
//	deepresearch history
//	deepresearch history show <run-id>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
