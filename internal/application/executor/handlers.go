package executor

import (
	"context"
	"fmt"

	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/aescanero/dago-workflow/pkg/ports"
)

// Handler performs one instruction and returns its result map
type Handler func(ctx context.Context, inst *domain.Instruction) (map[string]interface{}, error)

// dispatchTypes are the instruction types with a dedicated handler
var dispatchTypes = []domain.InstructionType{
	domain.InstructionTypeSkillInvocation,
	domain.InstructionTypeDataOperation,
	domain.InstructionTypeControlFlow,
	domain.InstructionTypeCommunication,
}

func buildHandlers(substrates map[domain.InstructionType]ports.Substrate) map[domain.InstructionType]Handler {
	handlers := make(map[domain.InstructionType]Handler, len(dispatchTypes))
	for _, t := range dispatchTypes {
		if s, ok := substrates[t]; ok && s != nil {
			handlers[t] = substrateHandler(t, s)
		}
	}
	return handlers
}

func substrateHandler(t domain.InstructionType, s ports.Substrate) Handler {
	return func(ctx context.Context, inst *domain.Instruction) (map[string]interface{}, error) {
		output, err := s.Execute(ctx, inst.Action, inst.Parameters)
		if err != nil {
			return nil, err
		}
		if output == nil {
			return nil, fmt.Errorf("%s substrate returned no result", t)
		}
		return map[string]interface{}{
			"status":  string(domain.WorkflowStatusCompleted),
			"type":    string(t),
			"action":  inst.Action,
			"handler": string(t),
			"output":  output,
		}, nil
	}
}

// genericHandler completes instructions whose type has no handler
func genericHandler(ctx context.Context, inst *domain.Instruction) (map[string]interface{}, error) {
	return map[string]interface{}{
		"status":  string(domain.WorkflowStatusCompleted),
		"type":    string(inst.Type),
		"action":  inst.Action,
		"handler": "generic",
	}, nil
}
