package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/dago-workflow/pkg/domain"
)

// entry is a registered workflow and the cancel hook of its running
// execution, if any
type entry struct {
	workflow *domain.Workflow
	cancel   context.CancelCauseFunc
}

// Registry is the workflow table and its state machine. It is not safe for
// concurrent use; the coordinator goroutine owns it.
type Registry struct {
	entries map[string]*entry
	order   []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Add registers a composed workflow
func (r *Registry) Add(wf *domain.Workflow) {
	if _, exists := r.entries[wf.ID]; !exists {
		r.order = append(r.order, wf.ID)
	}
	r.entries[wf.ID] = &entry{workflow: wf}
}

// Get returns the stored workflow
func (r *Registry) Get(id string) (*domain.Workflow, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.NotFound(id)
	}
	return e.workflow, nil
}

// List returns the stored workflows in composition order
func (r *Registry) List() []*domain.Workflow {
	out := make([]*domain.Workflow, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].workflow)
	}
	return out
}

// Executing returns, in composition order, the ids of workflows whose
// execution has not finished yet
func (r *Registry) Executing() []string {
	var out []string
	for _, id := range r.order {
		if r.entries[id].cancel != nil {
			out = append(out, id)
		}
	}
	return out
}

// Counts returns the number of workflows in each status
func (r *Registry) Counts() map[domain.WorkflowStatus]int {
	out := make(map[domain.WorkflowStatus]int)
	for _, e := range r.entries {
		out[e.workflow.Status]++
	}
	return out
}

// Len returns the number of registered workflows
func (r *Registry) Len() int {
	return len(r.entries)
}

// Replace swaps in a rewritten workflow, keeping any running execution hook
func (r *Registry) Replace(wf *domain.Workflow, now time.Time) error {
	e, ok := r.entries[wf.ID]
	if !ok {
		return domain.NotFound(wf.ID)
	}
	wf.UpdatedAt = now
	e.workflow = wf
	return nil
}

// Begin moves a ready workflow to running. Any other state is rejected
// without mutation.
func (r *Registry) Begin(id string, cancel context.CancelCauseFunc, now time.Time) (*domain.Workflow, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.NotFound(id)
	}

	switch e.workflow.Status {
	case domain.WorkflowStatusReady:
	case domain.WorkflowStatusRunning:
		return nil, domain.Errorf(domain.ErrWorkflowAlreadyRunning, id, "%s", id)
	case domain.WorkflowStatusCompleted:
		return nil, domain.Errorf(domain.ErrWorkflowAlreadyCompleted, id, "%s", id)
	case domain.WorkflowStatusFailed:
		return nil, domain.Errorf(domain.ErrWorkflowPreviouslyFailed, id, "%s", id)
	case domain.WorkflowStatusCancelled:
		return nil, domain.Errorf(domain.ErrWorkflowCancelled, id, "%s", id)
	default:
		return nil, fmt.Errorf("workflow %s has unknown status %q", id, e.workflow.Status)
	}

	e.workflow.Status = domain.WorkflowStatusRunning
	e.workflow.UpdatedAt = now
	e.cancel = cancel
	return e.workflow, nil
}

// Finish records the outcome of an execution. A workflow cancelled while
// running stays cancelled. It returns the status actually stored.
func (r *Registry) Finish(id string, status domain.WorkflowStatus, now time.Time) domain.WorkflowStatus {
	e, ok := r.entries[id]
	if !ok {
		return status
	}
	e.cancel = nil
	if e.workflow.Status == domain.WorkflowStatusCancelled {
		return domain.WorkflowStatusCancelled
	}
	e.workflow.Status = status
	e.workflow.UpdatedAt = now
	return status
}

// Reset returns a running workflow to ready when its execution could not be
// started
func (r *Registry) Reset(id string, now time.Time) {
	e, ok := r.entries[id]
	if !ok || e.workflow.Status != domain.WorkflowStatusRunning {
		return
	}
	e.cancel = nil
	e.workflow.Status = domain.WorkflowStatusReady
	e.workflow.UpdatedAt = now
}

// Cancel forces the workflow into cancelled from any state and signals its
// running execution, if there is one. It reports whether an execution was
// signalled.
func (r *Registry) Cancel(id string, now time.Time) (bool, error) {
	e, ok := r.entries[id]
	if !ok {
		return false, domain.NotFound(id)
	}
	e.workflow.Status = domain.WorkflowStatusCancelled
	e.workflow.UpdatedAt = now
	if e.cancel == nil {
		return false, nil
	}
	e.cancel(domain.ErrWorkflowCancelled)
	return true, nil
}

// Abort signals every running execution with cause
func (r *Registry) Abort(cause error) int {
	n := 0
	for _, e := range r.entries {
		if e.cancel != nil {
			e.cancel(cause)
			n++
		}
	}
	return n
}
