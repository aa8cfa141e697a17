// Package workers implements the worker pool that runs instruction work
// off the coordinator goroutine.
//
// The worker pool manages a fixed number of goroutines that:
//   - Take jobs from a bounded queue
//   - Run them with a context that is cancelled on shutdown
//   - Report idle/busy/stopped status
//
// Snapshot feeds the coordinator health report.
package workers
