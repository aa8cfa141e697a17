package substrate

import (
	"fmt"

	"github.com/aescanero/dago-workflow/pkg/adapters/substrate/anthropic"
	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/aescanero/dago-workflow/pkg/ports"
	"go.uber.org/zap"
)

const (
	ProviderLoopback  = "loopback"
	ProviderAnthropic = "anthropic"
)

// Config holds substrate configuration
type Config struct {
	SkillProvider string
	APIKey        string
	Model         string
	MaxTokens     int64
	Logger        *zap.Logger
}

// NewSubstrates builds the substrate for each dispatchable instruction type
func NewSubstrates(cfg *Config) (map[domain.InstructionType]ports.Substrate, error) {
	substrates := map[domain.InstructionType]ports.Substrate{
		domain.InstructionTypeSkillInvocation: &Loopback{Name: "skill"},
		domain.InstructionTypeDataOperation:   &Loopback{Name: "data"},
		domain.InstructionTypeControlFlow:     &Loopback{Name: "control"},
		domain.InstructionTypeCommunication:   &Loopback{Name: "communication"},
	}

	switch cfg.SkillProvider {
	case "", ProviderLoopback:
	case ProviderAnthropic:
		skill, err := anthropic.NewSkillSubstrate(cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create skill substrate: %w", err)
		}
		substrates[domain.InstructionTypeSkillInvocation] = skill
	default:
		return nil, fmt.Errorf("unsupported skill provider: %s", cfg.SkillProvider)
	}

	return substrates, nil
}
