// Package model defines the provider-agnostic abstractions for interacting
// with chat-completion models.
//
// Streaming and non-streaming generation share a single interface. Tool /
// function calls are normalized (ToolDefinition, core.FunctionCallPart) so
// agents never branch on a vendor. Per-request knobs such as the token budget
// and tool choice travel in Settings.
//
// Providers (model/openai, model/anthropic) implement Model. ScriptedModel
// replays canned responses for deterministic tests.
package model
