package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// InstructionType declares which handler an instruction is dispatched to
type InstructionType string

const (
	InstructionTypeSkillInvocation InstructionType = "skill_invocation"
	InstructionTypeDataOperation   InstructionType = "data_operation"
	InstructionTypeControlFlow     InstructionType = "control_flow"
	InstructionTypeCommunication   InstructionType = "communication"
	InstructionTypeOther           InstructionType = "other"
)

// BackoffStrategy names how retry delays grow between attempts
type BackoffStrategy string

const (
	BackoffExponential BackoffStrategy = "exponential"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffFixed       BackoffStrategy = "fixed"
)

// RetryPolicy bounds how often a failing instruction is re-dispatched
type RetryPolicy struct {
	MaxRetries int             `json:"max_retries" yaml:"max_retries"`
	Backoff    BackoffStrategy `json:"backoff" yaml:"backoff"`
}

// Compensation is the fallback action dispatched when a workflow fails after
// the owning instruction already completed.
type Compensation struct {
	Action     string                 `json:"action" yaml:"action"`
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Instruction is the normalized, atomic unit of work
type Instruction struct {
	ID           string                 `json:"id"`
	Type         InstructionType        `json:"type"`
	Action       string                 `json:"action"`
	Parameters   map[string]interface{} `json:"parameters"`
	Dependencies []string               `json:"dependencies"`
	Timeout      int64                  `json:"timeout"` // milliseconds
	RetryPolicy  *RetryPolicy           `json:"retry_policy,omitempty"`
	Compensation *Compensation          `json:"compensation,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// TimeoutDuration returns the declared timeout as a time.Duration
func (i *Instruction) TimeoutDuration() time.Duration {
	return time.Duration(i.Timeout) * time.Millisecond
}

// Raw converts the instruction back into the map form accepted by the
// normalizer. Normalizing the returned map yields an equal instruction.
func (i *Instruction) Raw() (map[string]interface{}, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal instruction: %w", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instruction: %w", err)
	}
	return raw, nil
}

// Clone returns a deep copy of the instruction
func (i *Instruction) Clone() *Instruction {
	if i == nil {
		return nil
	}
	c := *i
	c.Parameters = CopyMap(i.Parameters)
	if i.Dependencies != nil {
		c.Dependencies = append([]string(nil), i.Dependencies...)
	}
	if i.RetryPolicy != nil {
		rp := *i.RetryPolicy
		c.RetryPolicy = &rp
	}
	if i.Compensation != nil {
		comp := *i.Compensation
		comp.Parameters = CopyMap(i.Compensation.Parameters)
		c.Compensation = &comp
	}
	return &c
}

// CopyMap deep copies nested maps and slices; other values are shared.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
