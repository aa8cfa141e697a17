// Package metrics holds metrics collector implementations.
package metrics

import "time"

// Noop discards every measurement
type Noop struct{}

func (Noop) RecordWorkflowComposed(string) {}
func (Noop) RecordWorkflowExecuted(string, time.Duration) {}
func (Noop) RecordWorkflowCancelled() {}
func (Noop) RecordWorkflowOptimized(int) {}
func (Noop) RecordInstructionExecuted(string, string, time.Duration) {}
func (Noop) RecordInstructionRetry(string) {}
func (Noop) RecordCacheLookup(bool) {}
func (Noop) SetActiveExecutions(int) {}
func (Noop) RecordWorkerPoolStatus(int, int, int) {}
