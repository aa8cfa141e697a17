package substrate

import (
	"context"

	"github.com/aescanero/dago-workflow/pkg/domain"
)

// Loopback echoes the action and parameters it receives
type Loopback struct {
	Name string
}

// Execute returns the request as the result
func (l *Loopback) Execute(ctx context.Context, action string, parameters map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"substrate":  l.Name,
		"action":     action,
		"parameters": domain.CopyMap(parameters),
	}, nil
}

// Func adapts a function to ports.Substrate
type Func func(ctx context.Context, action string, parameters map[string]interface{}) (map[string]interface{}, error)

// Execute calls f
func (f Func) Execute(ctx context.Context, action string, parameters map[string]interface{}) (map[string]interface{}, error) {
	return f(ctx, action, parameters)
}
