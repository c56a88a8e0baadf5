// Package core provides the foundational domain types, interfaces and execution
// contexts used by deepresearch agents. It defines the core abstractions for:
//
//   - Agents (units of autonomous / orchestrated work)
//   - Sessions (stateful conversational containers with event history)
//   - Events (immutable communication + orchestration records)
//   - RunContext / ToolContext (scoped execution & tool sandboxing)
//
// Concrete agents, model providers and persistence live in sibling packages;
// core only exposes the small interfaces they plug into.
package core
