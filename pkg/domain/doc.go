// Package domain defines the instruction and workflow model shared by the
// normalizer, resolver, executor, optimizer and coordinator.
//
// Instructions are normalized from raw maps and composed into workflows.
// Workflows move through the lifecycle ready -> running -> completed|failed,
// and may be forced into cancelled from any state.
package domain
