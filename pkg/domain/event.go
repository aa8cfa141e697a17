package domain

import "time"

// EventType identifies a lifecycle event published by the coordinator
type EventType string

const (
	EventTypeWorkflowComposed      EventType = "workflow.composed"
	EventTypeWorkflowStarted       EventType = "workflow.started"
	EventTypeWorkflowCompleted     EventType = "workflow.completed"
	EventTypeWorkflowFailed        EventType = "workflow.failed"
	EventTypeWorkflowCancelled     EventType = "workflow.cancelled"
	EventTypeWorkflowOptimized     EventType = "workflow.optimized"
	EventTypeInstructionCompleted  EventType = "instruction.completed"
	EventTypeInstructionFailed     EventType = "instruction.failed"
	EventTypeInstructionCompensate EventType = "instruction.compensated"
)

// WorkflowEventsTopic is the topic every lifecycle event is published on
const WorkflowEventsTopic = "workflow.events"

// Event is a lifecycle notification
type Event struct {
	ID            string                 `json:"id"`
	Type          EventType              `json:"type"`
	WorkflowID    string                 `json:"workflow_id,omitempty"`
	InstructionID string                 `json:"instruction_id,omitempty"`
	CallerID      string                 `json:"caller_id,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Data          map[string]interface{} `json:"data,omitempty"`
}
