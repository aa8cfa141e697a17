package instructions

import (
	"github.com/aescanero/dago-workflow/pkg/domain"
)

// requiredFields are checked in this order so error messages are stable
var requiredFields = []string{"id", "type", "action", "parameters"}

// Validator checks that a raw instruction carries every required field
type Validator struct{}

// NewValidator creates a new instruction validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate fails with missing_required_fields naming every absent key
func (v *Validator) Validate(raw map[string]interface{}) error {
	var missing []string
	for _, field := range requiredFields {
		value, ok := raw[field]
		if !ok || value == nil {
			missing = append(missing, field)
			continue
		}
		if s, isString := value.(string); isString && s == "" {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return domain.MissingFields(domain.ErrMissingRequiredFields, missing)
	}
	return nil
}
