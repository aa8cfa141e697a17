// Package resolver computes the execution order of a workflow's instructions.
//
// Cycles are detected with a depth-first walk carrying the set of nodes on
// the current path; the first node reached while still on that path is
// reported as circular_dependency. Acyclic graphs are ordered with Kahn's
// algorithm, breaking ties by input position so independent instructions
// keep the order they were declared in.
package resolver
