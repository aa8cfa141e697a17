package domain

import "time"

// WorkflowStatus is the lifecycle state of a workflow
type WorkflowStatus string

const (
	WorkflowStatusReady     WorkflowStatus = "ready"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// IsTerminal reports whether no further transition except cancel is possible
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowStatusCompleted || s == WorkflowStatusFailed || s == WorkflowStatusCancelled
}

// WorkflowSpec is the caller supplied composition request
type WorkflowSpec struct {
	Name         string                   `json:"name" yaml:"name"`
	Instructions []map[string]interface{} `json:"instructions" yaml:"instructions"`
	Metadata     map[string]interface{}   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Workflow is a composed, ordered set of instructions plus its lifecycle state
type Workflow struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Instructions   []*Instruction         `json:"instructions"`
	ExecutionOrder []string               `json:"execution_order"`
	Status         WorkflowStatus         `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Instruction returns the instruction with the given id
func (w *Workflow) Instruction(id string) (*Instruction, bool) {
	for _, inst := range w.Instructions {
		if inst.ID == id {
			return inst, true
		}
	}
	return nil, false
}

// Clone returns a deep copy safe to hand out of the coordinator
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	c := *w
	c.Instructions = make([]*Instruction, len(w.Instructions))
	for i, inst := range w.Instructions {
		c.Instructions[i] = inst.Clone()
	}
	c.ExecutionOrder = append([]string(nil), w.ExecutionOrder...)
	c.Metadata = CopyMap(w.Metadata)
	return &c
}

// CompensationResult records the outcome of one compensation dispatch
type CompensationResult struct {
	InstructionID string                 `json:"instruction_id"`
	Action        string                 `json:"action"`
	Result        map[string]interface{} `json:"result,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// ExecutionResult is returned by workflow execution. On failure and
// cancellation InstructionResults holds the results collected so far.
type ExecutionResult struct {
	WorkflowID         string                            `json:"workflow_id"`
	Status             WorkflowStatus                    `json:"status"`
	InstructionResults map[string]map[string]interface{} `json:"instruction_results"`
	FailedInstruction  string                            `json:"failed_instruction,omitempty"`
	Error              string                            `json:"error,omitempty"`
	Compensations      []CompensationResult              `json:"compensations,omitempty"`
	StartedAt          time.Time                         `json:"started_at"`
	CompletedAt        time.Time                         `json:"completed_at"`
}
