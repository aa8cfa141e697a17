package orchestrator

import (
	"github.com/aescanero/dago-workflow/pkg/domain"
)

// Validator validates workflow specs
type Validator struct{}

// NewValidator creates a new workflow spec validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks that spec names the workflow and carries at least one
// instruction
func (v *Validator) Validate(spec *domain.WorkflowSpec) error {
	var missing []string
	if spec == nil || spec.Name == "" {
		missing = append(missing, "name")
	}
	if spec == nil || len(spec.Instructions) == 0 {
		missing = append(missing, "instructions")
	}
	if len(missing) > 0 {
		return domain.MissingFields(domain.ErrMissingWorkflowFields, missing)
	}

	for _, raw := range spec.Instructions {
		if raw == nil {
			return domain.Errorf(domain.ErrInvalidInstruction, "", "instruction is null")
		}
	}
	return nil
}
