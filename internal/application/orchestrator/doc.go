// Package orchestrator implements the workflow coordinator.
//
// The coordinator is the single serialization point for workflow state:
//   - One goroutine owns the registry and applies requests one at a time
//   - Instruction execution runs on the worker pool, off that goroutine
//   - Cancellation is cooperative and checked between instructions
//   - Lifecycle events are published to the event bus
//
// The validator checks workflow specs before any instruction is normalized.
package orchestrator
