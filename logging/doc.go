// Package logging provides a minimal logging interface and slog based
// adapters used throughout deepresearch.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) the agents, search providers and CLI use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - RedactHandler masking API keys before records reach the output
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.New(logging.Config{Level: logging.LogLevelDebug, Format: "json", Output: os.Stderr})
//	orchestrator := research.NewOrchestrator(model, providers, func(o *research.Options) { o.Logger = logger })
package logging
