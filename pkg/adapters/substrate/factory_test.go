package substrate

import (
	"context"
	"testing"

	"github.com/aescanero/dago-workflow/pkg/adapters/substrate/anthropic"
	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSubstrates_Loopback(t *testing.T) {
	subs, err := NewSubstrates(&Config{Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Len(t, subs, 4)

	result, err := subs[domain.InstructionTypeDataOperation].Execute(context.Background(), "db.read", map[string]interface{}{"t": "x"})
	require.NoError(t, err)
	assert.Equal(t, "db.read", result["action"])
	assert.Equal(t, "data", result["substrate"])
}

func TestNewSubstrates_Anthropic(t *testing.T) {
	subs, err := NewSubstrates(&Config{SkillProvider: ProviderAnthropic, APIKey: "k", Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.IsType(t, &anthropic.SkillSubstrate{}, subs[domain.InstructionTypeSkillInvocation])

	_, err = NewSubstrates(&Config{SkillProvider: ProviderAnthropic, Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestNewSubstrates_UnknownProvider(t *testing.T) {
	_, err := NewSubstrates(&Config{SkillProvider: "other"})
	assert.Error(t, err)
}

func TestLoopback_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Loopback{Name: "x"}).Execute(ctx, "a", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
