// Package substrate provides the effect-execution back ends instructions are
// dispatched to, one per instruction type.
//
// The engine treats a substrate as a black box that returns a result map or
// fails. Available back ends:
//   - loopback: echoes action and parameters (default for every type)
//   - anthropic: skill invocations answered by the Anthropic Messages API
package substrate
