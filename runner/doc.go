// Package runner executes a root agent against a session.
//
// A Runner appends the user message to the session, hands the agent a
// RunContext, then persists every non-partial event (applying its state
// delta) and forwards all events to the caller. Runs can be cancelled by id.
//
// RunSync is a convenience wrapper returning only the final text answer.
package runner
