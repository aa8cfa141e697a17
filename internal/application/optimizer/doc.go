// Package optimizer rewrites composed workflows.
//
// Rules run in priority order over a private copy of the workflow:
//   - remove_redundant_instructions drops instructions that repeat an
//     earlier {action, parameters} pair and points their dependents at the
//     kept instruction
//   - parallelize_independent_instructions records dependency levels in
//     metadata["parallel_groups"]
//   - optimize_execution_order recomputes the execution order
//
// The caller only sees the rewritten workflow when every rule succeeds.
package optimizer
