// Package agent contains the agent implementations used to build research
// pipelines:
//
//  1. Hierarchy plumbing shared by all agents (BaseAgent)
//  2. A coordination pattern running children in order (SequentialAgent)
//  3. The model-centric tool-calling agent (ModelAgent)
//
// An agent's Run receives a *core.RunContext and emits events through it.
// Composite agents coordinate child Runs on derived branches; ModelAgent
// delegates its loop to the flow package. Model specifics and tool
// implementations live in their own packages.
package agent
