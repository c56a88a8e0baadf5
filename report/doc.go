// Package report writes finished research results.
//
// Three formats are available:
//   - TextWriter: the console summary printed after a run
//   - MarkdownWriter: a self-contained Markdown document
//   - JSONWriter: structured output for tool integration
//
// Writers share the Writer interface and can be combined with MultiWriter.
package report
