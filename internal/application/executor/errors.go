package executor

import (
	"errors"
	"fmt"

	"github.com/aescanero/dago-workflow/pkg/domain"
)

// ErrHandlerPanic marks an attempt whose handler panicked
var ErrHandlerPanic = errors.New("instruction handler panicked")

// DispatchError is returned when every attempt at an instruction failed.
// It matches both domain.ErrInstructionFailed and the handler's error.
type DispatchError struct {
	InstructionID string
	Attempts      int
	Err           error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("instruction %s failed after %d attempt(s): %v", e.InstructionID, e.Attempts, e.Err)
}

func (e *DispatchError) Unwrap() []error {
	return []error{domain.ErrInstructionFailed, e.Err}
}
