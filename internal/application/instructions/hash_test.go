package instructions

import (
	"testing"

	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_IgnoresIdentityFields(t *testing.T) {
	n := NewNormalizer()
	a, err := n.Normalize(map[string]interface{}{
		"type":       "skill_invocation",
		"action":     "Do.Thing",
		"parameters": map[string]interface{}{"skill_id": "s1", "x": 1},
	})
	require.NoError(t, err)
	b, err := n.Normalize(map[string]interface{}{
		"id":           "other-id",
		"type":         "skill_invocation",
		"action":       "do.thing",
		"parameters":   map[string]interface{}{"x": 1, "skill_id": "s1"},
		"dependencies": []interface{}{"zzz"},
		"timeout":      10,
	})
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64)
}

func TestHash_DistinguishesEffects(t *testing.T) {
	base := &domain.Instruction{
		Type:       domain.InstructionTypeDataOperation,
		Action:     "db.read",
		Parameters: map[string]interface{}{"table": "a"},
	}
	variants := []*domain.Instruction{
		{Type: domain.InstructionTypeSkillInvocation, Action: "db.read", Parameters: map[string]interface{}{"table": "a"}},
		{Type: domain.InstructionTypeDataOperation, Action: "db.write", Parameters: map[string]interface{}{"table": "a"}},
		{Type: domain.InstructionTypeDataOperation, Action: "db.read", Parameters: map[string]interface{}{"table": "b"}},
	}

	hBase, err := Hash(base)
	require.NoError(t, err)
	for _, v := range variants {
		h, err := Hash(v)
		require.NoError(t, err)
		assert.NotEqual(t, hBase, h)
	}
}
